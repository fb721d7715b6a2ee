package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"tumapply/internal/domain"
)

const (
	getUserMethod = "/auth_v1.AuthV1/GetUser"
	adminRole     = "admin"
)

// Verifier turns an Authorization header value into an actor.
type Verifier interface {
	Verify(ctx context.Context, token string) (domain.Actor, error)
}

// GRPCVerifier asks the auth service who owns a token.
type GRPCVerifier struct {
	conn grpc.ClientConnInterface
}

func NewGRPCVerifier(conn grpc.ClientConnInterface) *GRPCVerifier {
	return &GRPCVerifier{conn: conn}
}

func (v *GRPCVerifier) Verify(ctx context.Context, token string) (domain.Actor, error) {
	md := metadata.New(map[string]string{
		"Authorization": token,
	})
	ctx = metadata.NewOutgoingContext(ctx, md)

	var reply structpb.Struct
	if err := v.conn.Invoke(ctx, getUserMethod, &emptypb.Empty{}, &reply); err != nil {
		switch status.Code(err) {
		case codes.Unauthenticated, codes.PermissionDenied, codes.NotFound:
			return domain.Actor{}, fmt.Errorf("%w: %s", domain.ErrForbidden, status.Convert(err).Message())
		}
		return domain.Actor{}, fmt.Errorf("auth service: %w", err)
	}

	return actorFromUser(&reply)
}

// actorFromUser reads {user: {id, role}}.
func actorFromUser(reply *structpb.Struct) (domain.Actor, error) {
	user := reply.GetFields()["user"].GetStructValue()
	if user == nil {
		return domain.Actor{}, fmt.Errorf("%w: auth service returned no user", domain.ErrForbidden)
	}

	id, err := uuid.Parse(user.GetFields()["id"].GetStringValue())
	if err != nil || id == uuid.Nil {
		return domain.Actor{}, fmt.Errorf("%w: invalid user id", domain.ErrForbidden)
	}

	role := user.GetFields()["role"].GetStringValue()
	return domain.Actor{
		UserID: id,
		Admin:  strings.EqualFold(role, adminRole),
	}, nil
}

// ActorFromRequest verifies the request's token. Requests without one are
// anonymous.
func ActorFromRequest(r *http.Request, v Verifier) (domain.Actor, error) {
	token := r.Header.Get("Authorization")
	if token == "" {
		return domain.Actor{}, nil
	}
	return v.Verify(r.Context(), token)
}
