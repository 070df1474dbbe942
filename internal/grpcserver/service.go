package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "marketplace.v1.MarketplaceService"

// MarketplaceServer is the server API for MarketplaceService. Requests and
// responses are google.protobuf.Struct values carrying the same JSON shapes
// as the HTTP API; list responses wrap their elements in "items".
type MarketplaceServer interface {
	CreateJob(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetJob(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListOpenJobs(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SelectApplicant(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateJobStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Apply(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Retract(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitFeedback(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FlagFeedback(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetReputation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRatings(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(MarketplaceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(MarketplaceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(MarketplaceServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

// ServiceDesc describes MarketplaceService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MarketplaceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateJob", MarketplaceServer.CreateJob),
		unary("GetJob", MarketplaceServer.GetJob),
		unary("ListOpenJobs", MarketplaceServer.ListOpenJobs),
		unary("SelectApplicant", MarketplaceServer.SelectApplicant),
		unary("UpdateJobStatus", MarketplaceServer.UpdateJobStatus),
		unary("Apply", MarketplaceServer.Apply),
		unary("Retract", MarketplaceServer.Retract),
		unary("SubmitFeedback", MarketplaceServer.SubmitFeedback),
		unary("FlagFeedback", MarketplaceServer.FlagFeedback),
		unary("GetReputation", MarketplaceServer.GetReputation),
		unary("GetRatings", MarketplaceServer.GetRatings),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "marketplace/v1/marketplace.proto",
}

// Register attaches srv to s.
func Register(s grpc.ServiceRegistrar, srv MarketplaceServer) {
	s.RegisterService(&ServiceDesc, srv)
}
