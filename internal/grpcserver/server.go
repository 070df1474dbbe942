// Package grpcserver implements the MarketplaceService gRPC server.
//
// It delegates all business logic to the domain services and handles
// only the gRPC transport concerns: metadata extraction, error mapping,
// and conversion between domain values and structpb messages.
package grpcserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"findsub/marketplace-service/internal/application"
	"findsub/marketplace-service/internal/apperr"
	"findsub/marketplace-service/internal/feedback"
	"findsub/marketplace-service/internal/identity"
	"findsub/marketplace-service/internal/job"
	"findsub/marketplace-service/internal/reputation"
)

// Services are the domain services a Server dispatches to.
type Services struct {
	Jobs       *job.Service
	Ledger     *application.Ledger
	Feedback   *feedback.Collector
	Reputation *reputation.Aggregator
	// Verifier may be nil; x-user-id / x-user-role metadata is then trusted.
	Verifier *identity.Verifier
}

// Server implements MarketplaceServer.
type Server struct {
	svc Services
}

// NewServer constructs a gRPC Server backed by svc.
func NewServer(svc Services) *Server {
	return &Server{svc: svc}
}

var _ MarketplaceServer = (*Server)(nil)

// ─── RPC implementations ──────────────────────────────────────────────────────

// CreateJob posts a job for the caller.
func (s *Server) CreateJob(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actorFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	var d job.Draft
	if err := decode(req, &d); err != nil {
		return nil, err
	}
	f, err := d.Fields()
	if err != nil {
		return nil, toGRPCError(err)
	}
	j, err := s.svc.Jobs.Create(ctx, actor, f)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return encode(j)
}

// GetJob returns one job by id.
func (s *Server) GetJob(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, err := s.actorFromCtx(ctx); err != nil {
		return nil, err
	}
	var in struct {
		JobID string `json:"jobId"`
	}
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	j, err := s.svc.Jobs.Get(ctx, in.JobID)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return encode(j)
}

// ListOpenJobs returns open listings annotated for the caller.
func (s *Server) ListOpenJobs(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actorFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	listings, err := s.svc.Jobs.ListOpen(ctx, actor)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return encodeItems(listings)
}

// SelectApplicant fills a job with one of its applicants.
func (s *Server) SelectApplicant(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actorFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	var in struct {
		JobID       string `json:"jobId"`
		ApplicantID string `json:"applicantId"`
	}
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	j, err := s.svc.Jobs.SelectApplicant(ctx, in.JobID, actor, in.ApplicantID)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return encode(j)
}

// UpdateJobStatus moves a job along the lifecycle.
func (s *Server) UpdateJobStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actorFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	var in struct {
		JobID  string `json:"jobId"`
		Status string `json:"status"`
	}
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	j, err := s.svc.Jobs.UpdateStatus(ctx, in.JobID, actor, in.Status)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return encode(j)
}

// Apply records the caller's application to a job.
func (s *Server) Apply(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actorFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	var in struct {
		JobID       string `json:"jobId"`
		CoverLetter string `json:"coverLetter"`
	}
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	a, err := s.svc.Ledger.Apply(ctx, in.JobID, actor, in.CoverLetter)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return encode(a)
}

// Retract withdraws the caller's application.
func (s *Server) Retract(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actorFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	var in struct {
		JobID string `json:"jobId"`
	}
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	if err := s.svc.Ledger.Retract(ctx, in.JobID, actor.ID); err != nil {
		return nil, toGRPCError(err)
	}
	return &structpb.Struct{}, nil
}

// SubmitFeedback records the caller's feedback on a completed job.
func (s *Server) SubmitFeedback(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actorFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	var in struct {
		JobID string `json:"jobId"`
		feedback.Input
	}
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	f, err := s.svc.Feedback.Submit(ctx, in.JobID, actor, in.Input)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return encode(f)
}

// FlagFeedback disputes a feedback entry addressed to the caller.
func (s *Server) FlagFeedback(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actorFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	var in struct {
		FeedbackID string `json:"feedbackId"`
		Reason     string `json:"reason"`
	}
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	f, err := s.svc.Feedback.Flag(ctx, in.FeedbackID, actor, in.Reason)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return encode(f)
}

// GetReputation returns a user's stored reputation fields.
func (s *Server) GetReputation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, err := s.actorFromCtx(ctx); err != nil {
		return nil, err
	}
	var in struct {
		UserID string `json:"userId"`
	}
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	rep, err := s.svc.Reputation.Get(ctx, in.UserID)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return encode(rep)
}

// GetRatings returns the per-category rating breakdown for a user.
func (s *Server) GetRatings(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, err := s.actorFromCtx(ctx); err != nil {
		return nil, err
	}
	var in struct {
		UserID string `json:"userId"`
	}
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	sum, err := s.svc.Reputation.Summary(ctx, in.UserID)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return encode(sum)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// actorFromCtx resolves the caller from gRPC metadata: a bearer token in
// "authorization" when a verifier is configured, otherwise the x-user-id and
// x-user-role values forwarded by the Gateway.
func (s *Server) actorFromCtx(ctx context.Context) (identity.Actor, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return identity.Actor{}, status.Error(codes.Unauthenticated, "missing metadata")
	}
	first := func(key string) string {
		if vals := md.Get(key); len(vals) > 0 {
			return vals[0]
		}
		return ""
	}

	var (
		actor identity.Actor
		err   error
	)
	if s.svc.Verifier != nil {
		token, found := strings.CutPrefix(first("authorization"), "Bearer ")
		if !found {
			return identity.Actor{}, status.Error(codes.Unauthenticated, "missing bearer token")
		}
		actor, err = s.svc.Verifier.Verify(strings.TrimSpace(token))
	} else {
		actor, err = identity.FromHeaders(first(identity.HeaderUserID), first(identity.HeaderUserRole))
	}
	if err != nil {
		return identity.Actor{}, status.Error(codes.Unauthenticated, err.Error())
	}
	return actor, nil
}

// toGRPCError maps domain errors to gRPC status errors.
func toGRPCError(err error) error {
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		return status.Error(codes.InvalidArgument, ve.Error())
	}
	switch apperr.Code(err) {
	case apperr.CodeNotFound:
		return status.Error(codes.NotFound, err.Error())
	case apperr.CodeForbidden:
		return status.Error(codes.PermissionDenied, err.Error())
	case apperr.CodeInvalidState, apperr.CodeInvalidTransition, apperr.CodeJobNotOpen:
		return status.Error(codes.FailedPrecondition, err.Error())
	case apperr.CodeDuplicateApplication, apperr.CodeDuplicateFeedback:
		return status.Error(codes.AlreadyExists, err.Error())
	case apperr.CodeAlreadyFilled:
		return status.Error(codes.Aborted, err.Error())
	}
	slog.Error("grpc call failed", "err", err)
	return status.Error(codes.Internal, "internal server error")
}

// decode unpacks a structpb request into v through its JSON form.
func decode(in *structpb.Struct, v any) error {
	raw, err := protojson.Marshal(in)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}
	return nil
}

// encode packs a domain value into a structpb response using its JSON tags.
func encode(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func encodeItems[T any](items []T) (*structpb.Struct, error) {
	if items == nil {
		items = []T{}
	}
	return encode(map[string]any{"items": items})
}

// LoggingInterceptor logs every unary call with its status code and latency.
func LoggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	slog.Info("grpc",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration", time.Since(start))
	return resp, err
}
