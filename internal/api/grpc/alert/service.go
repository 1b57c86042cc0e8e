package alert

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "alarmalert.v1.AlertService"

// Method names of the AlertService.
const (
	MethodFire            = "Fire"
	MethodSnooze          = "Snooze"
	MethodSnoozeLongPress = "SnoozeLongPress"
	MethodDismiss         = "Dismiss"
	MethodBack            = "Back"
	MethodKey             = "Key"
	MethodDigit           = "Digit"
	MethodBackspace       = "Backspace"
	MethodResetAnswer     = "ResetAnswer"
	MethodSubmitAnswer    = "SubmitAnswer"
	MethodResume          = "Resume"
	MethodRemoveAlarm     = "RemoveAlarm"
	MethodStatus          = "Status"
)

// AlertServiceServer is the server API for AlertService. Every message is a
// google.protobuf.Struct; the field names are listed in wire.go.
type AlertServiceServer interface {
	Fire(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Snooze(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	SnoozeLongPress(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Dismiss(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Back(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Key(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Digit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Backspace(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ResetAnswer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	SubmitAnswer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Resume(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RemoveAlarm(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Status(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(AlertServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// ServiceDesc describes AlertService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AlertServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		method(MethodFire, AlertServiceServer.Fire),
		method(MethodSnooze, AlertServiceServer.Snooze),
		method(MethodSnoozeLongPress, AlertServiceServer.SnoozeLongPress),
		method(MethodDismiss, AlertServiceServer.Dismiss),
		method(MethodBack, AlertServiceServer.Back),
		method(MethodKey, AlertServiceServer.Key),
		method(MethodDigit, AlertServiceServer.Digit),
		method(MethodBackspace, AlertServiceServer.Backspace),
		method(MethodResetAnswer, AlertServiceServer.ResetAnswer),
		method(MethodSubmitAnswer, AlertServiceServer.SubmitAnswer),
		method(MethodResume, AlertServiceServer.Resume),
		method(MethodRemoveAlarm, AlertServiceServer.RemoveAlarm),
		method(MethodStatus, AlertServiceServer.Status),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "alarmalert/v1/alert.proto",
}

// RegisterAlertServiceServer registers srv on s.
func RegisterAlertServiceServer(s grpc.ServiceRegistrar, srv AlertServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// FullMethod returns the gRPC path of a method, e.g. "/alarmalert.v1.AlertService/Fire".
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func method(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}

			server, _ := srv.(AlertServiceServer)
			if interceptor == nil {
				return call(server, ctx, in)
			}

			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(name),
			}

			handler := func(ctx context.Context, req any) (any, error) {
				in, _ := req.(*structpb.Struct)

				return call(server, ctx, in)
			}

			return interceptor(ctx, in, info, handler)
		},
	}
}

// AlertServiceClient calls AlertService methods over a client connection.
type AlertServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAlertServiceClient wraps cc.
func NewAlertServiceClient(cc grpc.ClientConnInterface) *AlertServiceClient {
	return &AlertServiceClient{cc: cc}
}

// Call invokes the named method.
func (c *AlertServiceClient) Call(
	ctx context.Context,
	name string,
	in *structpb.Struct,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	if in == nil {
		in = new(structpb.Struct)
	}

	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(name), in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}
