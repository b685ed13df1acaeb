package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dbhealth/internal/model"
)

// Completer is the advisory language-model service.
type Completer interface {
	Name() string
	Complete(ctx context.Context, system, user string) (string, error)
}

const advisorySystemPrompt = `You are a MySQL performance advisor. You receive the JSON health report of one MySQL server, covering system resources, server status, query cache, InnoDB, slow queries and table statistics.

Reply with a single JSON object and nothing else:
{"commands": [{"id": "...", "action": "...", "priority": "high|medium|low", "target_service": "mysql", "parameters": {}, "rationale": "..."}]}

Suggest only actions justified by the report. Use an empty list when nothing needs to change.`

// Advisor asks the advisory service for suggested commands and repairs its answer.
type Advisor struct {
	completer Completer
	newID     func() string
	logger    zerolog.Logger
}

// NewAdvisor creates an Advisor backed by the given completer.
func NewAdvisor(completer Completer, logger zerolog.Logger) *Advisor {
	return &Advisor{
		completer: completer,
		newID:     uuid.NewString,
		logger:    logger.With().Str("component", "advisor").Logger(),
	}
}

// Provider returns the name of the underlying service.
func (a *Advisor) Provider() string {
	return a.completer.Name()
}

// Advise sends the primitive report document and returns the repaired commands.
// Errors wrap model.ErrAdvisoryTransport or model.ErrAdvisoryParse.
func (a *Advisor) Advise(ctx context.Context, doc map[string]any) ([]model.AdvisoryCommand, error) {
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode report: %v", model.ErrSerialization, err)
	}

	user := "Analyze this MySQL monitoring report and suggest optimization commands:\n" + string(payload)

	a.logger.Debug().Str("provider", a.completer.Name()).Int("prompt_bytes", len(user)).Msg("requesting advisory")

	text, err := a.completer.Complete(ctx, advisorySystemPrompt, user)
	if err != nil {
		if errors.Is(err, model.ErrAdvisoryTransport) || errors.Is(err, model.ErrAdvisoryParse) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", model.ErrAdvisoryTransport, err)
	}

	commands, err := ParseCommands(text, a.newID)
	if err != nil {
		a.logger.Warn().Err(err).Msg("advisory response could not be parsed")
		return nil, err
	}

	a.logger.Info().Str("provider", a.completer.Name()).Int("commands", len(commands)).Msg("advisory received")
	return commands, nil
}

// ParseCommands extracts the command list from a model response. It accepts
// {"commands": [...]}, a bare array or a single command object, optionally
// wrapped in a Markdown code fence or surrounded by prose.
func ParseCommands(text string, newID func() string) ([]model.AdvisoryCommand, error) {
	payload, err := extractJSON(text)
	if err != nil {
		return nil, err
	}

	var decoded any
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrAdvisoryParse, err)
	}

	var elements []any
	switch v := decoded.(type) {
	case []any:
		elements = v
	case map[string]any:
		raw, ok := v["commands"]
		switch {
		case !ok:
			if _, single := v["action"]; !single {
				return nil, fmt.Errorf("%w: response object has no \"commands\" list", model.ErrAdvisoryParse)
			}
			elements = []any{v}
		case raw == nil:
			elements = nil
		default:
			list, isList := raw.([]any)
			if !isList {
				return nil, fmt.Errorf("%w: \"commands\" is %T, not a list", model.ErrAdvisoryParse, raw)
			}
			elements = list
		}
	default:
		return nil, fmt.Errorf("%w: unexpected top-level JSON %T", model.ErrAdvisoryParse, decoded)
	}

	commands := make([]model.AdvisoryCommand, 0, len(elements))
	seen := make(map[string]bool, len(elements))
	for _, e := range elements {
		cmd := RepairCommand(e, newID)
		// Approvals are matched by id, so every command needs its own.
		for seen[cmd.ID] {
			cmd.ID = newID()
		}
		seen[cmd.ID] = true
		commands = append(commands, cmd)
	}
	return commands, nil
}

// RepairCommand turns one decoded element into a fully populated command,
// defaulting every field that is missing or of the wrong type.
func RepairCommand(element any, newID func() string) model.AdvisoryCommand {
	cmd := model.AdvisoryCommand{
		Action:        model.DefaultAction,
		Priority:      model.PriorityMedium,
		TargetService: model.DefaultTargetService,
		Parameters:    map[string]any{},
		Rationale:     model.DefaultRationale,
	}

	switch v := element.(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			cmd.Action = s
		}
	case map[string]any:
		cmd.ID = idString(v["id"])
		if s, ok := nonEmptyString(v["action"]); ok {
			cmd.Action = s
		}
		if s, ok := v["priority"].(string); ok {
			cmd.Priority = model.ParsePriority(s)
		}
		if s, ok := nonEmptyString(v["target_service"]); ok {
			cmd.TargetService = s
		}
		if params, ok := v["parameters"].(map[string]any); ok {
			cmd.Parameters = clampDepth(params, 1).(map[string]any)
		}
		if s, ok := nonEmptyString(v["rationale"]); ok {
			cmd.Rationale = s
		}
	}

	if cmd.ID == "" {
		cmd.ID = newID()
	}
	return cmd
}

// maxParameterDepth bounds the nesting kept in command parameters. Deeper
// values are stored as their JSON text so the report stays serializable.
const maxParameterDepth = 8

func clampDepth(v any, depth int) any {
	switch t := v.(type) {
	case map[string]any:
		if depth > maxParameterDepth {
			return jsonText(t)
		}
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = clampDepth(e, depth+1)
		}
		return out
	case []any:
		if depth > maxParameterDepth {
			return jsonText(t)
		}
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = clampDepth(e, depth+1)
		}
		return out
	default:
		return v
	}
}

func jsonText(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func idString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(id)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case bool, map[string]any, []any:
		return ""
	default:
		return fmt.Sprint(id)
	}
}

func nonEmptyString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// extractJSON strips code fences and surrounding prose from a model response.
func extractJSON(text string) (string, error) {
	s := strings.TrimSpace(text)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:] // drop the language tag line
		}
		if end := strings.LastIndex(s, "```"); end >= 0 {
			s = s[:end]
		}
		s = strings.TrimSpace(s)
	}

	if s == "" {
		return "", fmt.Errorf("%w: empty response", model.ErrAdvisoryParse)
	}
	if s[0] == '{' || s[0] == '[' {
		return s, nil
	}

	start := strings.IndexAny(s, "{[")
	end := strings.LastIndexAny(s, "}]")
	if start < 0 || end <= start {
		return "", fmt.Errorf("%w: no JSON found in response", model.ErrAdvisoryParse)
	}
	return s[start : end+1], nil
}
