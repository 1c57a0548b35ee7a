package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"github.com/mcdev12/pollroom/go/internal/classroom"
	"github.com/mcdev12/pollroom/go/internal/models"
)

const (
	// ClassroomServiceName is the fully-qualified name of the admin service
	ClassroomServiceName = "pollroom.v1.ClassroomService"

	ClassroomServiceMintModeratorProcedure  = "/" + ClassroomServiceName + "/MintModerator"
	ClassroomServiceListHistoryProcedure    = "/" + ClassroomServiceName + "/ListHistory"
	ClassroomServiceGetCurrentPollProcedure = "/" + ClassroomServiceName + "/GetCurrentPoll"
)

type MintModeratorRequest struct{}

type MintModeratorResponse struct {
	DisplayName string `json:"display_name"`
}

type ListHistoryRequest struct {
	// Limit keeps only the most recent entries when positive
	Limit int `json:"limit"`
}

type ListHistoryResponse struct {
	Entries []models.HistoryEntry `json:"entries"`
}

type GetCurrentPollRequest struct{}

type GetCurrentPollResponse struct {
	Poll         *models.Poll `json:"poll,omitempty"`
	Participants []string     `json:"participants"`
}

// ClassroomService implements the admin RPCs on top of the room
type ClassroomService struct {
	state StateProvider
	namer *ModeratorNamer
}

// NewClassroomService creates the admin service
func NewClassroomService(state StateProvider, namer *ModeratorNamer) *ClassroomService {
	return &ClassroomService{
		state: state,
		namer: namer,
	}
}

// MintModerator returns a fresh teacher display name
func (s *ClassroomService) MintModerator(ctx context.Context, req *connect.Request[MintModeratorRequest]) (*connect.Response[MintModeratorResponse], error) {
	return connect.NewResponse(&MintModeratorResponse{DisplayName: s.namer.Mint()}), nil
}

// ListHistory returns archived polls, oldest first
func (s *ClassroomService) ListHistory(ctx context.Context, req *connect.Request[ListHistoryRequest]) (*connect.Response[ListHistoryResponse], error) {
	if req.Msg.Limit < 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("limit must not be negative: %d", req.Msg.Limit))
	}

	history, err := s.state.History(ctx)
	if err != nil {
		return nil, roomError(err)
	}
	if req.Msg.Limit > 0 && len(history) > req.Msg.Limit {
		history = history[len(history)-req.Msg.Limit:]
	}
	if history == nil {
		history = []models.HistoryEntry{}
	}

	return connect.NewResponse(&ListHistoryResponse{Entries: history}), nil
}

// GetCurrentPoll returns the active poll, if any, and who is present
func (s *ClassroomService) GetCurrentPoll(ctx context.Context, req *connect.Request[GetCurrentPollRequest]) (*connect.Response[GetCurrentPollResponse], error) {
	current, err := s.state.CurrentPoll(ctx)
	if err != nil {
		return nil, roomError(err)
	}
	participants, err := s.state.Participants(ctx)
	if err != nil {
		return nil, roomError(err)
	}

	return connect.NewResponse(&GetCurrentPollResponse{
		Poll:         current,
		Participants: participants,
	}), nil
}

func roomError(err error) error {
	if errors.Is(err, classroom.ErrRoomClosed) {
		return connect.NewError(connect.CodeUnavailable, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

// NewClassroomServiceHandler builds an HTTP handler for the service. It
// returns the path on which to mount it.
func NewClassroomServiceHandler(svc *ClassroomService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mintModerator := connect.NewUnaryHandler(
		ClassroomServiceMintModeratorProcedure,
		svc.MintModerator,
		opts...,
	)
	listHistory := connect.NewUnaryHandler(
		ClassroomServiceListHistoryProcedure,
		svc.ListHistory,
		opts...,
	)
	getCurrentPoll := connect.NewUnaryHandler(
		ClassroomServiceGetCurrentPollProcedure,
		svc.GetCurrentPoll,
		opts...,
	)

	return "/" + ClassroomServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case ClassroomServiceMintModeratorProcedure:
			mintModerator.ServeHTTP(w, r)
		case ClassroomServiceListHistoryProcedure:
			listHistory.ServeHTTP(w, r)
		case ClassroomServiceGetCurrentPollProcedure:
			getCurrentPoll.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// ClassroomServiceClient calls the admin service
type ClassroomServiceClient struct {
	mintModerator  *connect.Client[MintModeratorRequest, MintModeratorResponse]
	listHistory    *connect.Client[ListHistoryRequest, ListHistoryResponse]
	getCurrentPoll *connect.Client[GetCurrentPollRequest, GetCurrentPollResponse]
}

// NewClassroomServiceClient creates a client for the service at baseURL
func NewClassroomServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ClassroomServiceClient {
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &ClassroomServiceClient{
		mintModerator: connect.NewClient[MintModeratorRequest, MintModeratorResponse](
			httpClient, baseURL+ClassroomServiceMintModeratorProcedure, opts...),
		listHistory: connect.NewClient[ListHistoryRequest, ListHistoryResponse](
			httpClient, baseURL+ClassroomServiceListHistoryProcedure, opts...),
		getCurrentPoll: connect.NewClient[GetCurrentPollRequest, GetCurrentPollResponse](
			httpClient, baseURL+ClassroomServiceGetCurrentPollProcedure, opts...),
	}
}

func (c *ClassroomServiceClient) MintModerator(ctx context.Context, req *connect.Request[MintModeratorRequest]) (*connect.Response[MintModeratorResponse], error) {
	return c.mintModerator.CallUnary(ctx, req)
}

func (c *ClassroomServiceClient) ListHistory(ctx context.Context, req *connect.Request[ListHistoryRequest]) (*connect.Response[ListHistoryResponse], error) {
	return c.listHistory.CallUnary(ctx, req)
}

func (c *ClassroomServiceClient) GetCurrentPoll(ctx context.Context, req *connect.Request[GetCurrentPollRequest]) (*connect.Response[GetCurrentPollResponse], error) {
	return c.getCurrentPoll.CallUnary(ctx, req)
}
