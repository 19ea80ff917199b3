package opcspace

import (
	"context"
	"fmt"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"

	"github.com/sdplc-io/simplc/internal/value"
)

// ClientConfig describes the upstream OPC UA endpoint used for the client
// role (spec §6 opcua_client_config).
type ClientConfig struct {
	Endpoint        string
	Username        string
	Password        string
	CertificateFile string
	PrivateKeyFile  string
	SecurityPolicy  []int
}

// UpstreamClient is the OPC UA client-role wiring used by the Sync
// Engine's upstream fan-out (spec §4.6 step 4) and the explicit read_node
// bypass (step 5). Anonymous access is used when no credentials are set,
// matching the server role's own "anonymous access as admin" posture.
type UpstreamClient struct {
	client *opcua.Client
}

// DialUpstream builds and connects a client for cfg.
func DialUpstream(ctx context.Context, cfg ClientConfig) (*UpstreamClient, error) {
	opts := []opcua.Option{opcua.SecurityMode(ua.MessageSecurityModeNone)}
	if cfg.Username != "" {
		opts = append(opts, opcua.AuthUsername(cfg.Username, cfg.Password))
	} else {
		opts = append(opts, opcua.AuthAnonymous())
	}
	if cfg.CertificateFile != "" && cfg.PrivateKeyFile != "" {
		opts = append(opts, opcua.CertificateFile(cfg.CertificateFile), opcua.PrivateKeyFile(cfg.PrivateKeyFile))
	}

	c, err := opcua.NewClient(cfg.Endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("opcspace: configure upstream client: %w", err)
	}
	if err := c.Connect(ctx); err != nil {
		return nil, fmt.Errorf("opcspace: dial upstream %s: %w", cfg.Endpoint, err)
	}
	return &UpstreamClient{client: c}, nil
}

// Close disconnects the upstream session.
func (u *UpstreamClient) Close(ctx context.Context) error {
	return u.client.Close(ctx)
}

// Read fetches the current value of the node identified by id, coercing
// the wire variant onto kind.
func (u *UpstreamClient) Read(ctx context.Context, id *ua.NodeID, kind value.Kind) (value.Value, error) {
	req := &ua.ReadRequest{
		MaxAge:             2000,
		NodesToRead:        []*ua.ReadValueID{{NodeID: id, AttributeID: ua.AttributeIDValue}},
		TimestampsToReturn: ua.TimestampsToReturnNeither,
	}
	resp, err := u.client.Read(req)
	if err != nil {
		return value.Value{}, fmt.Errorf("opcspace: upstream read: %w", err)
	}
	if len(resp.Results) == 0 || resp.Results[0].Status != ua.StatusOK {
		return value.Value{}, fmt.Errorf("opcspace: upstream read: bad status")
	}
	return variantToValue(resp.Results[0].Value, kind)
}

// Write pushes v to the node identified by id.
func (u *UpstreamClient) Write(ctx context.Context, id *ua.NodeID, v value.Value) error {
	variant, err := valueToVariant(v)
	if err != nil {
		return err
	}
	req := &ua.WriteRequest{
		NodesToWrite: []*ua.WriteValue{
			{
				NodeID:      id,
				AttributeID: ua.AttributeIDValue,
				Value: &ua.DataValue{
					EncodingMask: ua.DataValueValue,
					Value:        variant,
				},
			},
		},
	}
	resp, err := u.client.Write(req)
	if err != nil {
		return fmt.Errorf("opcspace: upstream write: %w", err)
	}
	if len(resp.Results) == 0 || resp.Results[0] != ua.StatusOK {
		return fmt.Errorf("opcspace: upstream write: bad status")
	}
	return nil
}

func valueToVariant(v value.Value) (*ua.Variant, error) {
	switch v.Kind() {
	case value.Bool:
		return ua.MustVariant(v.Bool()), nil
	case value.Int:
		return ua.MustVariant(v.Int()), nil
	case value.Float:
		return ua.MustVariant(v.Float()), nil
	default:
		return nil, fmt.Errorf("opcspace: unsupported value kind %s", v.Kind())
	}
}

func variantToValue(variant *ua.Variant, kind value.Kind) (value.Value, error) {
	switch kind {
	case value.Bool:
		return value.FromBool(variant.Bool()), nil
	case value.Int:
		return value.FromInt(variant.Int()), nil
	case value.Float:
		return value.FromFloat(variant.Float()), nil
	default:
		return value.Value{}, fmt.Errorf("opcspace: unsupported value kind %s", kind)
	}
}
