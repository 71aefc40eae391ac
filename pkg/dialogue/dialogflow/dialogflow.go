// Package dialogflow implements dialogue.Service on top of the Dialogflow CX
// sessions and tools APIs.
package dialogflow

import (
	"context"
	"fmt"

	cx "cloud.google.com/go/dialogflow/cx/apiv3beta1"
	"cloud.google.com/go/dialogflow/cx/apiv3beta1/cxpb"
	"github.com/go-go-golems/dialbench/pkg/dialogue"
	"github.com/go-go-golems/dialbench/pkg/retry"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Config struct {
	ProjectID       string `mapstructure:"project-id" yaml:"project-id"`
	Location        string `mapstructure:"location" yaml:"location"`
	AgentID         string `mapstructure:"agent-id" yaml:"agent-id"`
	CredentialsFile string `mapstructure:"credentials-file" yaml:"credentials-file"`
	LanguageCode    string `mapstructure:"language-code" yaml:"language-code"`
	// Endpoint overrides the regional endpoint derived from Location.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
}

func DefaultConfig() Config {
	return Config{
		Location:     "global",
		LanguageCode: "en",
	}
}

func (c Config) Validate() error {
	if c.ProjectID == "" {
		return errors.New("dialogflow project id is required")
	}
	if c.AgentID == "" {
		return errors.New("dialogflow agent id is required")
	}
	return nil
}

// AgentName is the resource name of the agent, the parent of its sessions and tools.
func (c Config) AgentName() string {
	location := c.Location
	if location == "" {
		location = "global"
	}
	return fmt.Sprintf("projects/%s/locations/%s/agents/%s", c.ProjectID, location, c.AgentID)
}

func (c Config) clientOptions() []option.ClientOption {
	var opts []option.ClientOption
	if c.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(c.CredentialsFile))
	}
	switch {
	case c.Endpoint != "":
		opts = append(opts, option.WithEndpoint(c.Endpoint))
	case c.Location != "" && c.Location != "global":
		opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-dialogflow.googleapis.com:443", c.Location)))
	}
	return opts
}

type Service struct {
	config   Config
	sessions *cx.SessionsClient
	tools    *cx.ToolsClient
}

var _ dialogue.Service = (*Service)(nil)

func NewService(ctx context.Context, config Config) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	opts := config.clientOptions()

	sessions, err := cx.NewSessionsClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create dialogflow sessions client")
	}
	tools, err := cx.NewToolsClient(ctx, opts...)
	if err != nil {
		_ = sessions.Close()
		return nil, errors.Wrap(err, "failed to create dialogflow tools client")
	}

	log.Debug().Str("agent", config.AgentName()).Msg("connected to dialogflow")
	return &Service{config: config, sessions: sessions, tools: tools}, nil
}

func (s *Service) SessionPrefix() string {
	return s.config.AgentName()
}

func (s *Service) DetectIntent(ctx context.Context, req *dialogue.Request) (*dialogue.Response, error) {
	if req.LanguageCode == "" {
		req.LanguageCode = s.config.LanguageCode
	}
	pbReq, err := EncodeRequest(req)
	if err != nil {
		return nil, retry.Permanent(err)
	}
	resp, err := s.sessions.DetectIntent(ctx, pbReq)
	if err != nil {
		return nil, classify(errors.Wrapf(err, "detect intent failed for session %s", req.Session))
	}
	return DecodeResult(resp.GetQueryResult()), nil
}

func (s *Service) ListTools(ctx context.Context) ([]dialogue.ToolInfo, error) {
	it := s.tools.ListTools(ctx, &cxpb.ListToolsRequest{Parent: s.config.AgentName()})

	var ret []dialogue.ToolInfo
	for {
		tool, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, classify(errors.Wrap(err, "failed to list dialogflow tools"))
		}
		ret = append(ret, dialogue.ToolInfo{
			Name:        tool.GetName(),
			DisplayName: tool.GetDisplayName(),
			Description: tool.GetDescription(),
		})
	}
	return ret, nil
}

func (s *Service) Close() error {
	var errs []error
	if err := s.sessions.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.tools.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Errorf("failed to close dialogflow clients: %v", errs)
	}
	return nil
}

// classify marks errors that a retry cannot fix as permanent.
func classify(err error) error {
	switch status.Code(errors.Cause(err)) {
	case codes.InvalidArgument, codes.NotFound, codes.PermissionDenied,
		codes.Unauthenticated, codes.FailedPrecondition, codes.Unimplemented:
		return retry.Permanent(err)
	default:
		return err
	}
}
