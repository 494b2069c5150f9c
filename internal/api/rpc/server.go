package rpc

import (
	"context"
	"errors"
	"net"
	"slices"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/KevinKickass/HomeGateway/internal/auth"
	"github.com/KevinKickass/HomeGateway/internal/devices"
	"github.com/KevinKickass/HomeGateway/internal/helios"
)

// Server hosts the ventilation service and the standard health service.
type Server struct {
	grpc    *grpc.Server
	health  *health.Server
	service *Ventilation
	logger  *zap.Logger
}

func NewServer(manager *devices.Manager, authService *auth.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		grpc:    grpc.NewServer(grpc.UnaryInterceptor(AuthInterceptor(authService))),
		health:  health.NewServer(),
		service: NewVentilation(manager, logger),
		logger:  logger,
	}

	RegisterVentilationServer(s.grpc, s.service)
	healthpb.RegisterHealthServer(s.grpc, s.health)

	// unknown until the first full read
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_UNKNOWN)
	return s
}

// Serve blocks until the listener fails or the server is stopped.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("gRPC server listening",
		zap.String("address", lis.Addr().String()),
		zap.String("services", ServiceName))
	return s.grpc.Serve(lis)
}

func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

// SetReachable reflects the outcome of the last full read in the health
// service.
func (s *Server) SetReachable(reachable bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if reachable {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, st)
	s.health.SetServingStatus("", st)
}

// AuthInterceptor checks the bearer token in the "authorization" metadata.
// WriteParameter needs write permission, everything else read permission.
func AuthInterceptor(svc *auth.Service) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if !strings.HasPrefix(info.FullMethod, "/"+ServiceName+"/") || !svc.Enabled() {
			return handler(ctx, req)
		}

		md, _ := metadata.FromIncomingContext(ctx)
		values := md.Get("authorization")
		if len(values) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing authorization metadata")
		}
		token, ok := strings.CutPrefix(values[0], "Bearer ")
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "invalid authorization format")
		}

		perms, err := svc.ValidateToken(token)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid or expired token")
		}

		required := auth.PermRead
		if info.FullMethod == writeParameterMethod {
			required = auth.PermWrite
		}
		if !slices.Contains(perms, required) {
			return nil, status.Errorf(codes.PermissionDenied, "requires %s permission", required)
		}
		return handler(ctx, req)
	}
}

// Ventilation implements VentilationServer on top of the device manager.
type Ventilation struct {
	manager *devices.Manager
	logger  *zap.Logger
}

func NewVentilation(manager *devices.Manager, logger *zap.Logger) *Ventilation {
	return &Ventilation{manager: manager, logger: logger}
}

var _ VentilationServer = (*Ventilation)(nil)

func (v *Ventilation) ReadParameter(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	desc, err := v.descriptor(in.GetValue())
	if err != nil {
		return nil, err
	}
	if !v.manager.Registry().IsReadable(desc.Name) {
		return nil, status.Errorf(codes.PermissionDenied, "parameter %s is not readable", desc.Name)
	}

	val, st := v.manager.ReadParameter(ctx, desc.Name)
	if st != helios.Good {
		return nil, statusError(desc.Name, st)
	}
	return parameterStruct(desc, val, st)
}

func (v *Ventilation) WriteParameter(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	fields := in.GetFields()
	desc, err := v.descriptor(fields["name"].GetStringValue())
	if err != nil {
		return nil, err
	}
	if !v.manager.Registry().IsWritable(desc.Name) {
		return nil, status.Errorf(codes.PermissionDenied, "parameter %s is not writable", desc.Name)
	}

	raw, ok := fields["value"]
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "missing value")
	}
	val, err := helios.ValueFromJSON(desc, raw.AsInterface())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	st := v.manager.WriteParameter(ctx, desc.Name, val, "grpc")
	if st != helios.Good {
		return nil, statusError(desc.Name, st)
	}
	return parameterStruct(desc, val, st)
}

func (v *Ventilation) ListParameters(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	registry := v.manager.Registry()

	list := make([]interface{}, 0, registry.Len())
	for _, name := range registry.Names() {
		desc, _ := registry.Descriptor(name)
		entry := map[string]interface{}{
			"name":     desc.Name,
			"key":      desc.Key,
			"size":     desc.Size,
			"count":    desc.Count,
			"kind":     desc.Kind.String(),
			"readable": registry.IsReadable(name),
			"writable": registry.IsWritable(name),
		}
		if desc.Enum != nil {
			members := make([]interface{}, len(desc.Enum.Members))
			for i, m := range desc.Enum.Members {
				members[i] = m
			}
			entry["members"] = members
		}
		list = append(list, entry)
	}

	return structpb.NewStruct(map[string]interface{}{
		"parameters": list,
		"count":      len(list),
	})
}

func (v *Ventilation) descriptor(name string) (helios.Descriptor, error) {
	if name == "" {
		return helios.Descriptor{}, status.Error(codes.InvalidArgument, "missing parameter name")
	}
	desc, err := v.manager.Registry().Descriptor(name)
	if errors.Is(err, helios.ErrUnknownParameter) {
		return helios.Descriptor{}, status.Errorf(codes.NotFound, "unknown parameter %s", name)
	}
	return desc, err
}

func parameterStruct(desc helios.Descriptor, v helios.Value, st helios.Status) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(map[string]interface{}{
		"name":        desc.Name,
		"key":         desc.Key,
		"kind":        desc.Kind.String(),
		"value":       v.Interface(),
		"status":      st.String(),
		"status_code": int64(st),
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// statusError carries the exchange status in a gRPC error.
func statusError(name string, st helios.Status) error {
	return status.Errorf(grpcCode(st), "%s: %s (0x%08X)", name, st, uint32(st))
}

func grpcCode(st helios.Status) codes.Code {
	switch st {
	case helios.Good:
		return codes.OK
	case helios.BadOutOfRange:
		return codes.OutOfRange
	case helios.BadEncodingError:
		return codes.InvalidArgument
	case helios.BadCommunicationError:
		return codes.Unavailable
	case helios.BadDecodingError, helios.BadUnknownResponse, helios.BadDeviceFailure:
		return codes.DataLoss
	default:
		return codes.Internal
	}
}
