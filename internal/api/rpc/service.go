package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The service uses well-known protobuf types only, so no generated code is
// needed on either side.
const (
	ServiceName = "homegateway.v1.Ventilation"

	readParameterMethod  = "/" + ServiceName + "/ReadParameter"
	writeParameterMethod = "/" + ServiceName + "/WriteParameter"
	listParametersMethod = "/" + ServiceName + "/ListParameters"
)

// VentilationServer is the server API of homegateway.v1.Ventilation.
type VentilationServer interface {
	ReadParameter(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	WriteParameter(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListParameters(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterVentilationServer registers srv on s.
func RegisterVentilationServer(s grpc.ServiceRegistrar, srv VentilationServer) {
	s.RegisterService(&VentilationServiceDesc, srv)
}

var VentilationServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*VentilationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ReadParameter", Handler: readParameterHandler},
		{MethodName: "WriteParameter", Handler: writeParameterHandler},
		{MethodName: "ListParameters", Handler: listParametersHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "homegateway/v1/ventilation.proto",
}

func readParameterHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VentilationServer).ReadParameter(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: readParameterMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(VentilationServer).ReadParameter(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func writeParameterHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VentilationServer).WriteParameter(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: writeParameterMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(VentilationServer).WriteParameter(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func listParametersHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VentilationServer).ListParameters(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listParametersMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(VentilationServer).ListParameters(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// VentilationClient is the client API of homegateway.v1.Ventilation.
type VentilationClient struct {
	cc grpc.ClientConnInterface
}

func NewVentilationClient(cc grpc.ClientConnInterface) *VentilationClient {
	return &VentilationClient{cc: cc}
}

func (c *VentilationClient) ReadParameter(ctx context.Context, name string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, readParameterMethod, wrapperspb.String(name), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *VentilationClient) WriteParameter(ctx context.Context, name string, value interface{}, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]interface{}{"name": name, "value": value})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, writeParameterMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *VentilationClient) ListParameters(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, listParametersMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
