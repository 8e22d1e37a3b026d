package frontgrpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"pkt.systems/frontline/schema"
	"pkt.systems/pslog"
)

func logGRPCError(log pslog.Logger, msg string, err error) {
	if log == nil || err == nil {
		return
	}
	if st, ok := status.FromError(err); ok {
		log.Warn(msg, "err", err, "code", st.Code().String(), "message", st.Message())
		return
	}
	log.Warn(msg, "err", err)
}

func wrapTransportError(op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *schema.TransportError
	if errors.As(err, &existing) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return schema.NewTransportError(schema.TransportErrorCanceled, op, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return schema.NewTransportError(schema.TransportErrorTimeout, op, err)
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unavailable:
			return schema.NewTransportError(schema.TransportErrorUnavailable, op, err)
		case codes.DeadlineExceeded:
			return schema.NewTransportError(schema.TransportErrorTimeout, op, err)
		case codes.Canceled:
			return schema.NewTransportError(schema.TransportErrorCanceled, op, err)
		case codes.Unimplemented, codes.InvalidArgument, codes.Internal:
			return schema.NewTransportError(schema.TransportErrorRemote, op, err)
		default:
			return schema.NewTransportError(schema.TransportErrorUnknown, op, err)
		}
	}
	return schema.NewTransportError(schema.TransportErrorUnknown, op, err)
}
