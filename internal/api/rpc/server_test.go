package rpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/KevinKickass/HomeGateway/internal/auth"
	"github.com/KevinKickass/HomeGateway/internal/config"
	"github.com/KevinKickass/HomeGateway/internal/devices"
	"github.com/KevinKickass/HomeGateway/internal/modbus"
)

type fixture struct {
	sim    *modbus.Simulator
	server *Server
	client *VentilationClient
	health healthpb.HealthClient
}

func setup(t *testing.T, authCfg config.AuthConfig) *fixture {
	t.Helper()

	sim := modbus.NewSimulator(180, 1, nil)
	addr, err := sim.Listen("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { sim.Close() })
	sim.Set("v00102", "2")
	sim.Set("v00104", "07.5")

	manager := devices.NewManager(config.HeliosConfig{
		Address:       addr,
		UnitID:        180,
		MailboxOffset: 1,
		SettleDelay:   time.Millisecond,
		Timeout:       time.Second,
	}, devices.ManagerOptions{}, nil)
	require.NoError(t, manager.Start(context.Background()))
	t.Cleanup(func() { manager.Stop(context.Background()) })

	server := NewServer(manager, auth.NewService(authCfg, nil), nil)
	lis := bufconn.Listen(1 << 20)
	go server.Serve(lis)
	t.Cleanup(server.GracefulStop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &fixture{
		sim:    sim,
		server: server,
		client: NewVentilationClient(conn),
		health: healthpb.NewHealthClient(conn),
	}
}

func TestReadParameter(t *testing.T) {
	f := setup(t, config.AuthConfig{})
	ctx := context.Background()

	out, err := f.client.ReadParameter(ctx, "VentilationLevel")
	require.NoError(t, err)
	fields := out.GetFields()
	assert.Equal(t, "Level2", fields["value"].GetStringValue())
	assert.Equal(t, "Good", fields["status"].GetStringValue())
	assert.Equal(t, "v00102", fields["key"].GetStringValue())

	out, err = f.client.ReadParameter(ctx, "OutdoorAirTemperature")
	require.NoError(t, err)
	assert.Equal(t, 7.5, out.GetFields()["value"].GetNumberValue())
}

func TestReadParameterErrors(t *testing.T) {
	f := setup(t, config.AuthConfig{})
	ctx := context.Background()

	_, err := f.client.ReadParameter(ctx, "NoSuchParameter")
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = f.client.ReadParameter(ctx, "FilterReset")
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = f.client.ReadParameter(ctx, "")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	// the simulator answers unknown keys with zeros
	_, err = f.client.ReadParameter(ctx, "SupplyAirTemperature")
	assert.Equal(t, codes.OutOfRange, status.Code(err))
	assert.Contains(t, status.Convert(err).Message(), "BadOutOfRange")
}

func TestWriteParameter(t *testing.T) {
	f := setup(t, config.AuthConfig{})
	ctx := context.Background()

	out, err := f.client.WriteParameter(ctx, "VentilationLevel", 4)
	require.NoError(t, err)
	assert.Equal(t, "Level4", out.GetFields()["value"].GetStringValue())

	v, _ := f.sim.Value("v00102")
	assert.Equal(t, "4", v)

	_, err = f.client.WriteParameter(ctx, "OutdoorAirTemperature", 3.0)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = f.client.WriteParameter(ctx, "VentilationLevel", "Level9")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestListParameters(t *testing.T) {
	f := setup(t, config.AuthConfig{})

	out, err := f.client.ListParameters(context.Background())
	require.NoError(t, err)

	list := out.GetFields()["parameters"].GetListValue().GetValues()
	require.NotEmpty(t, list)
	assert.Equal(t, float64(len(list)), out.GetFields()["count"].GetNumberValue())

	for _, item := range list {
		fields := item.GetStructValue().GetFields()
		if fields["name"].GetStringValue() == "VentilationLevel" {
			assert.Len(t, fields["members"].GetListValue().GetValues(), 5)
			assert.True(t, fields["writable"].GetBoolValue())
			return
		}
	}
	t.Fatal("VentilationLevel not listed")
}

func TestHealthReflectsReachability(t *testing.T) {
	f := setup(t, config.AuthConfig{})
	ctx := context.Background()
	req := &healthpb.HealthCheckRequest{Service: ServiceName}

	resp, err := f.health.Check(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_UNKNOWN, resp.GetStatus())

	f.server.SetReachable(true)
	resp, err = f.health.Check(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	f.server.SetReachable(false)
	resp, err = f.health.Check(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
}

func TestAuthInterceptor(t *testing.T) {
	hash, err := auth.NewKeyHasher().HashKey("house-key")
	require.NoError(t, err)
	cfg := config.AuthConfig{APIKeyHash: hash, JWTSecretEnv: "HGW_TEST_UNSET_SECRET", AccessTokenTTL: time.Minute}
	f := setup(t, cfg)
	svc := auth.NewService(cfg, nil)

	_, err = f.client.ReadParameter(context.Background(), "VentilationLevel")
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	viewer, _, err := svc.IssueToken("house-key", "test", auth.RoleViewer)
	require.NoError(t, err)
	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+viewer)

	_, err = f.client.ReadParameter(ctx, "VentilationLevel")
	assert.NoError(t, err)

	_, err = f.client.WriteParameter(ctx, "VentilationLevel", 1)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	// health stays open
	_, err = f.health.Check(context.Background(), &healthpb.HealthCheckRequest{})
	assert.NoError(t, err)
}
