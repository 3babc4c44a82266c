package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"runsettings/internal/logging"
	"runsettings/internal/observability"
	"runsettings/internal/session"
	"runsettings/internal/settings"
	"runsettings/internal/toolpolicy"
)

// SelectModelRequest selects a model.
type SelectModelRequest struct {
	Model string `json:"model"`
}

// EffortRequest sets the reasoning effort.
type EffortRequest struct {
	Effort string `json:"effort"`
}

// ToolChoiceRequest asks how the agent should treat a prompt.
type ToolChoiceRequest struct {
	Prompt string `json:"prompt"`
}

// ToolChoiceResponse pairs the decision with the settings it was made from.
type ToolChoiceResponse struct {
	toolpolicy.Decision
	ToolArgs settings.ToolSettings `json:"tool_args"`
	Model    string                `json:"model"`
}

// ModelsResponse lists the picker catalog.
type ModelsResponse struct {
	Models      []settings.PickerOption `json:"models"`
	Selected    string                  `json:"selected"`
	PickerValue string                  `json:"picker_value"`
	AllowCustom bool                    `json:"allow_custom"`
}

// SettingsHandler serves the run-settings endpoints for the request's session.
type SettingsHandler struct {
	policy *toolpolicy.Policy
	tracer *observability.TracerProvider
	logger logging.Logger
}

// NewSettingsHandler builds the handler.
func NewSettingsHandler(policy *toolpolicy.Policy, tracer *observability.TracerProvider, logger logging.Logger) *SettingsHandler {
	if policy == nil {
		policy = toolpolicy.New(toolpolicy.Config{}, nil)
	}
	return &SettingsHandler{policy: policy, tracer: tracer, logger: logging.OrNop(logger)}
}

func (h *SettingsHandler) session(c *gin.Context) (*session.Session, bool) {
	s, found := SessionFrom(c)
	if !found {
		fail(c, fmt.Errorf("session not resolved"))
		return nil, false
	}
	return s, true
}

// dispatch runs fn inside a dispatch span and answers with the drawer view.
func (h *SettingsHandler) dispatch(c *gin.Context, s *session.Session, action settings.Action, fn func() error) {
	_, span := h.tracer.StartSpan(c.Request.Context(), observability.SpanDispatch, observability.ActionAttrs(action)...)
	defer span.End()
	if err := fn(); err != nil {
		span.SetAttributes(observability.ErrorAttrs(err)...)
		logging.FromContext(c.Request.Context(), h.logger).Debug("%s rejected: %v", action.Kind, err)
		fail(c, err)
		return
	}
	ok(c, s.View())
}

// GetSettings - current drawer view
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	ok(c, s.View())
}

// ListModels - picker catalog with selection flags
func (h *SettingsHandler) ListModels(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	state := s.State()
	picker := s.Picker()
	ok(c, ModelsResponse{
		Models:      settings.PickerOptions(s.Catalog(), state.SelectedModel),
		Selected:    state.SelectedModel,
		PickerValue: picker.Value(state.SelectedModel),
		AllowCustom: picker.AllowCustom,
	})
}

// SelectModel - PUT /settings/model
func (h *SettingsHandler) SelectModel(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	var req SelectModelRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	if strings.TrimSpace(req.Model) == "" {
		fail(c, badRequest("model is required"))
		return
	}
	h.dispatch(c, s, settings.SetSelectedModel(req.Model), func() error {
		_, err := s.SelectModel(req.Model)
		if errors.Is(err, settings.ErrUnknownModel) {
			return statusError(http.StatusUnprocessableEntity, err)
		}
		return err
	})
}

// PatchTools - PATCH /settings/tools with a partial ToolSettings body
func (h *SettingsHandler) PatchTools(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	var patch settings.ToolSettingsPatch
	if err := bindJSON(c, &patch); err != nil {
		fail(c, err)
		return
	}
	if patch.ThinkingTokens != nil && *patch.ThinkingTokens < 0 {
		fail(c, badRequest("thinking_tokens must be >= 0"))
		return
	}
	h.dispatch(c, s, settings.SetToolSettings(patch), func() error {
		s.SetTools(patch)
		return nil
	})
}

// ToggleTool - POST /settings/tools/:name/toggle
func (h *SettingsHandler) ToggleTool(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	name := c.Param("name")
	tool, err := settings.ParseTool(name)
	if err != nil {
		fail(c, statusError(http.StatusNotFound, err))
		return
	}
	action := settings.SetToolSettings(settings.TogglePatch(s.State().ToolSettings, tool))
	h.dispatch(c, s, action, func() error {
		_, err := s.Toggle(string(tool))
		return err
	})
}

// SetEffort - PUT /settings/effort
func (h *SettingsHandler) SetEffort(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	var req EffortRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	effort, err := settings.ParseEffort(req.Effort)
	if err != nil {
		fail(c, statusError(http.StatusBadRequest, err))
		return
	}
	h.dispatch(c, s, settings.SetToolSettings(settings.EffortPatch(effort)), func() error {
		_, err := s.SetEffort(effort)
		if errors.Is(err, settings.ErrReasoningUnsupported) {
			return statusError(http.StatusConflict, err)
		}
		return err
	})
}

// Reset - POST /settings/reset
func (h *SettingsHandler) Reset(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	h.dispatch(c, s, settings.ResetSettings(s.Catalog().First()), func() error {
		s.Reset()
		return nil
	})
}

// ToolChoice - POST /settings/tool-choice
func (h *SettingsHandler) ToolChoice(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	var req ToolChoiceRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	state := s.State()
	_, span := h.tracer.StartSpan(c.Request.Context(), observability.SpanToolChoice,
		attribute.String(observability.AttrModel, state.SelectedModel))
	decision := h.policy.Decide(state.ToolSettings, req.Prompt)
	span.SetAttributes(attribute.String("runsettings.tool_choice", string(decision.ToolChoice)))
	span.End()

	ok(c, ToolChoiceResponse{Decision: decision, ToolArgs: state.ToolSettings, Model: state.SelectedModel})
}
