package handlers

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// PageTypeServiceName is the fully qualified gRPC service name
const PageTypeServiceName = "pagetypes.v1.PageTypeService"

const (
	PageAttributeAssignMethod   = "/" + PageTypeServiceName + "/PageAttributeAssign"
	PageAttributeUnassignMethod = "/" + PageTypeServiceName + "/PageAttributeUnassign"
	PageTypeMethod              = "/" + PageTypeServiceName + "/PageType"
)

// PageTypeServiceServer is the server API for the page type service.
// Requests and responses are google.protobuf.Struct messages.
type PageTypeServiceServer interface {
	PageAttributeAssign(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PageAttributeUnassign(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PageType(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterPageTypeServiceServer registers srv with the gRPC server
func RegisterPageTypeServiceServer(s grpc.ServiceRegistrar, srv PageTypeServiceServer) {
	s.RegisterService(&PageTypeServiceDesc, srv)
}

// PageTypeServiceDesc describes the page type service
var PageTypeServiceDesc = grpc.ServiceDesc{
	ServiceName: PageTypeServiceName,
	HandlerType: (*PageTypeServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "PageAttributeAssign",
			Handler:    unaryHandler(PageAttributeAssignMethod, PageTypeServiceServer.PageAttributeAssign),
		},
		{
			MethodName: "PageAttributeUnassign",
			Handler:    unaryHandler(PageAttributeUnassignMethod, PageTypeServiceServer.PageAttributeUnassign),
		},
		{
			MethodName: "PageType",
			Handler:    unaryHandler(PageTypeMethod, PageTypeServiceServer.PageType),
		},
	},
	Streams: []grpc.StreamDesc{},
}

type unaryMethod func(PageTypeServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(PageTypeServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(PageTypeServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// PageTypeServiceClient is the client API for the page type service
type PageTypeServiceClient interface {
	PageAttributeAssign(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	PageAttributeUnassign(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	PageType(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type pageTypeServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewPageTypeServiceClient creates a client on the connection
func NewPageTypeServiceClient(cc grpc.ClientConnInterface) PageTypeServiceClient {
	return &pageTypeServiceClient{cc: cc}
}

func (c *pageTypeServiceClient) PageAttributeAssign(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, PageAttributeAssignMethod, in, opts...)
}

func (c *pageTypeServiceClient) PageAttributeUnassign(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, PageAttributeUnassignMethod, in, opts...)
}

func (c *pageTypeServiceClient) PageType(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, PageTypeMethod, in, opts...)
}

func (c *pageTypeServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
