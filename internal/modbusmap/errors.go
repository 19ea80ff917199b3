package modbusmap

import "errors"

var (
	// ErrAlreadyOccupied is returned by the add_* operations when a
	// requested address window overlaps one already allocated.
	ErrAlreadyOccupied = errors.New("modbusmap: address already occupied")
	// ErrNotFound is returned when reading or writing an address that was
	// never allocated.
	ErrNotFound = errors.New("modbusmap: address not allocated")
)
