package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/scheduler-ai/cmd/mainconfig"
	"github.com/clinicdesk/scheduler-ai/internal/agent"
	"github.com/clinicdesk/scheduler-ai/internal/availability"
	"github.com/clinicdesk/scheduler-ai/internal/booking"
	appconfig "github.com/clinicdesk/scheduler-ai/internal/config"
	"github.com/clinicdesk/scheduler-ai/internal/directory"
	"github.com/clinicdesk/scheduler-ai/pkg/logging"
)

// app holds the dependencies built once at cold start.
type app struct {
	controller *agent.Controller
	sessions   agent.SessionStore
	logger     *logging.Logger
}

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	var oracle agent.Oracle
	if cfg.BedrockModelID != "" {
		oracle = agent.NewBedrockOracle(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID)
	}

	roster := directory.NewPostgresRepository(pool)
	slots := availability.NewStore(pool)
	engine := booking.NewEngine(pool, nil, logger)

	a := &app{
		controller: agent.NewController(roster, slots, engine, oracle, logger),
		sessions:   agent.NewDynamoSessionStore(dynamodb.NewFromConfig(awsCfg), cfg.SessionsTable, cfg.SessionTTL),
		logger:     logger.Component("lambda"),
	}

	lambda.Start(a.handle)
}

func (a *app) handle(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	method := strings.ToUpper(strings.TrimSpace(evt.RequestContext.HTTP.Method))
	path := strings.TrimSpace(evt.RawPath)
	if path == "" {
		path = strings.TrimSpace(evt.RequestContext.HTTP.Path)
	}

	if path == "/health" {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusOK, Body: "ok"}, nil
	}
	if method != http.MethodPost || path != "/chat" {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusNotFound}, nil
	}

	body, err := decodeBody(evt)
	if err != nil {
		return jsonResponse(http.StatusBadRequest, map[string]string{"error": "invalid body"}), nil
	}

	var req agent.ChatRequest
	if err := json.Unmarshal(body, &req); err != nil || req.Message == "" {
		return jsonResponse(http.StatusBadRequest, map[string]string{"error": "message is required"}), nil
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	state, err := a.sessions.Load(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, agent.ErrSessionNotFound) {
			a.logger.Error("session load failed", "session_id", sessionID, "error", err)
			return jsonResponse(http.StatusInternalServerError, map[string]string{"error": "session unavailable"}), nil
		}
		if req.State != nil {
			state = *req.State
		}
	}

	turn, err := a.controller.HandleTurn(ctx, req.Message, state)
	if err != nil {
		a.logger.Error("chat turn failed", "session_id", sessionID, "error", err)
		return jsonResponse(http.StatusInternalServerError, map[string]string{"error": "something went wrong handling that message"}), nil
	}

	if err := a.sessions.Save(ctx, sessionID, turn.State); err != nil {
		a.logger.Warn("session save failed", "session_id", sessionID, "error", err)
	}

	return jsonResponse(http.StatusOK, agent.ChatResponse{SessionID: sessionID, Turn: *turn}), nil
}

func decodeBody(evt events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if !evt.IsBase64Encoded {
		return []byte(evt.Body), nil
	}
	return base64.StdEncoding.DecodeString(evt.Body)
}

func jsonResponse(status int, v any) events.APIGatewayV2HTTPResponse {
	data, _ := json.Marshal(v)
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Body:       string(data),
		Headers:    map[string]string{"content-type": "application/json"},
	}
}
