package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/matheus3301/tele/internal/auth"
	"github.com/matheus3301/tele/internal/collections"
	"github.com/matheus3301/tele/internal/media"
	"github.com/matheus3301/tele/internal/search"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "tele.v1.Tele"

// TeleServer is the daemon API.
type TeleServer interface {
	GetStatus(context.Context, *emptypb.Empty) (*StatusReply, error)

	GetAuthState(context.Context, *emptypb.Empty) (*auth.Snapshot, error)
	QueryAuth(context.Context, *emptypb.Empty) (*auth.Snapshot, error)
	SubmitCredentials(context.Context, *CredentialsRequest) (*auth.Snapshot, error)
	SubmitPhone(context.Context, *PhoneRequest) (*auth.Snapshot, error)
	SubmitCode(context.Context, *CodeRequest) (*auth.Snapshot, error)
	SubmitPassword(context.Context, *PasswordRequest) (*auth.Snapshot, error)
	LogOut(context.Context, *emptypb.Empty) (*auth.Snapshot, error)

	GetMediaState(context.Context, *emptypb.Empty) (*media.State, error)
	LoadFresh(context.Context, *LoadRequest) (*media.State, error)
	LoadIfNeeded(context.Context, *emptypb.Empty) (*media.State, error)
	LoadMore(context.Context, *emptypb.Empty) (*media.State, error)
	Focus(context.Context, *ItemRequest) (*emptypb.Empty, error)
	DeleteItem(context.Context, *ItemRequest) (*media.State, error)
	ResolveLink(context.Context, *ItemRequest) (*LinkReply, error)
	DismissError(context.Context, *emptypb.Empty) (*media.State, error)

	GetSearchState(context.Context, *emptypb.Empty) (*search.Snapshot, error)
	Search(context.Context, *SearchRequest) (*search.Snapshot, error)
	SelectResult(context.Context, *SelectRequest) (*search.Snapshot, error)
	ClearSearch(context.Context, *emptypb.Empty) (*search.Snapshot, error)
	ConsumeFocusFirstResult(context.Context, *emptypb.Empty) (*FlagReply, error)
	ConsumeRefreshMedia(context.Context, *emptypb.Empty) (*FlagReply, error)

	GetCandidates(context.Context, *emptypb.Empty) (*collections.State, error)
	ListCandidates(context.Context, *emptypb.Empty) (*collections.State, error)

	Watch(*WatchRequest, grpc.ServerStream) error
}

// ServiceDesc describes TeleServer for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TeleServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("GetStatus", TeleServer.GetStatus),
		unary("GetAuthState", TeleServer.GetAuthState),
		unary("QueryAuth", TeleServer.QueryAuth),
		unary("SubmitCredentials", TeleServer.SubmitCredentials),
		unary("SubmitPhone", TeleServer.SubmitPhone),
		unary("SubmitCode", TeleServer.SubmitCode),
		unary("SubmitPassword", TeleServer.SubmitPassword),
		unary("LogOut", TeleServer.LogOut),
		unary("GetMediaState", TeleServer.GetMediaState),
		unary("LoadFresh", TeleServer.LoadFresh),
		unary("LoadIfNeeded", TeleServer.LoadIfNeeded),
		unary("LoadMore", TeleServer.LoadMore),
		unary("Focus", TeleServer.Focus),
		unary("DeleteItem", TeleServer.DeleteItem),
		unary("ResolveLink", TeleServer.ResolveLink),
		unary("DismissError", TeleServer.DismissError),
		unary("GetSearchState", TeleServer.GetSearchState),
		unary("Search", TeleServer.Search),
		unary("SelectResult", TeleServer.SelectResult),
		unary("ClearSearch", TeleServer.ClearSearch),
		unary("ConsumeFocusFirstResult", TeleServer.ConsumeFocusFirstResult),
		unary("ConsumeRefreshMedia", TeleServer.ConsumeRefreshMedia),
		unary("GetCandidates", TeleServer.GetCandidates),
		unary("ListCandidates", TeleServer.ListCandidates),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       watchHandler,
			ServerStreams: true,
		},
	},
	Metadata: "tele/v1/tele.proto",
}

// WatchStreamDesc is the client-side descriptor of the Watch stream.
var WatchStreamDesc = &ServiceDesc.Streams[0]

// Method returns the full method path of an RPC.
func Method(name string) string {
	return "/" + ServiceName + "/" + name
}

func unary[Req, Resp any](name string, call func(TeleServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(TeleServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Method(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(TeleServer), ctx, req.(*Req))
			})
		},
	}
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(WatchRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(TeleServer).Watch(in, stream)
}
