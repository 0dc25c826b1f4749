package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/staff-dashboard/internal/api"
	"github.com/example/staff-dashboard/internal/application"
	"github.com/example/staff-dashboard/internal/channels"
)

type reportService interface {
	Coverage(ctx context.Context, day time.Time) (application.CoverageReport, error)
	AgentMetrics(ctx context.Context, from, to time.Time) ([]application.AgentMetrics, error)
}

type ReportHandler struct {
	service   reportService
	registry  *channels.Registry
	now       func() time.Time
	responder responder
}

// NewReportHandler serves coverage, agent metrics and the channel table. A
// nil registry serves the built-in table.
func NewReportHandler(service reportService, registry *channels.Registry, now func() time.Time, logger *slog.Logger) *ReportHandler {
	if registry == nil {
		registry = channels.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &ReportHandler{service: service, registry: registry, now: now, responder: newResponder(logger)}
}

func (h *ReportHandler) Channels(w http.ResponseWriter, r *http.Request) {
	all := h.registry.All()
	out := make([]api.Channel, 0, len(all))
	for _, spec := range all {
		out = append(out, api.Channel{
			Name:         spec.Name,
			Abbreviation: spec.Abbreviation,
			Colors: api.Colors{
				Background: spec.Colors.Background,
				Border:     spec.Colors.Border,
				Text:       spec.Colors.Text,
			},
			StartHour:      spec.StartHour,
			EndHour:        spec.EndHour,
			MinStaff:       spec.MinStaff,
			StatusInterval: spec.StatusInterval,
			IsBreak:        spec.IsBreak,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, out)
}

func (h *ReportHandler) Coverage(w http.ResponseWriter, r *http.Request) {
	day := h.now()
	if value := strings.TrimSpace(r.URL.Query().Get("date")); value != "" {
		parsed, err := time.Parse(dateLayout, value)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
			return
		}
		day = parsed
	}

	report, err := h.service.Coverage(r.Context(), day)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := api.Coverage{Date: report.Date, Shortfalls: report.Shortfalls, Channels: make([]api.ChannelCoverage, 0, len(report.Channels))}
	for _, channel := range report.Channels {
		cc := api.ChannelCoverage{Channel: channel.Channel, MinStaff: channel.MinStaff, Hours: make([]api.HourCoverage, 0, len(channel.Hours))}
		for _, hour := range channel.Hours {
			cc.Hours = append(cc.Hours, api.HourCoverage{
				Hour:     hour.Hour,
				Staffed:  hour.Staffed,
				Required: hour.Required,
				Short:    hour.Short,
				Agents:   append([]string{}, hour.Agents...),
			})
		}
		out.Channels = append(out.Channels, cc)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, out)
}

func (h *ReportHandler) Agents(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r.URL.Query())
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRange)
		return
	}

	metrics, err := h.service.AgentMetrics(r.Context(), from, to)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := api.AgentMetricsList{From: from.UTC(), To: to.UTC(), Agents: make([]api.AgentMetrics, 0, len(metrics))}
	for _, m := range metrics {
		hours := make(map[string]float64, len(m.ChannelHours))
		for channel, h := range m.ChannelHours {
			hours[channel] = h
		}
		out.Agents = append(out.Agents, api.AgentMetrics{
			AgentEmail:       m.AgentEmail,
			Name:             m.Name,
			ChannelHours:     hours,
			TotalHours:       m.TotalHours,
			BreakHours:       m.BreakHours,
			StatusUpdatesDue: m.StatusUpdatesDue,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, out)
}
