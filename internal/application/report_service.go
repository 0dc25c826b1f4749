package application

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/staff-dashboard/internal/channels"
	"github.com/example/staff-dashboard/internal/scheduler"
)

// ReportService aggregates shifts into staffing views.
type ReportService struct {
	shifts    ShiftRepository
	timeOff   TimeOffRepository
	directory *Directory
	registry  *channels.Registry
	location  *time.Location
}

// NewReportService wires dependencies for reports. Operating hours are read
// in loc; nil means UTC.
func NewReportService(shifts ShiftRepository, timeOff TimeOffRepository, directory *Directory, registry *channels.Registry, loc *time.Location) *ReportService {
	if registry == nil {
		registry = channels.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{shifts: shifts, timeOff: timeOff, directory: directory, registry: registry, location: loc}
}

// Coverage counts, for every non-break channel and each of its operating
// hours on day, the distinct agents scheduled on that channel. Agents with
// approved time off or a break during the hour are not counted.
func (s *ReportService) Coverage(ctx context.Context, day time.Time) (CoverageReport, error) {
	if s == nil || s.shifts == nil {
		return CoverageReport{}, fmt.Errorf("shift repository not configured")
	}
	local := day.In(s.location)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.location)
	dayEnd := midnight.AddDate(0, 0, 1)

	shifts, err := s.shifts.ListShifts(ctx)
	if err != nil {
		return CoverageReport{}, err
	}
	absences, err := s.approvedAbsences(ctx)
	if err != nil {
		return CoverageReport{}, err
	}

	byChannel := make(map[string][]Shift)
	breaks := make(map[string][]interval)
	for _, shift := range shifts {
		if !inRange(shift.Start, shift.End, midnight, dayEnd) {
			continue
		}
		spec := s.registry.Resolve(shift.Channel)
		if spec.IsBreak {
			agent := strings.ToLower(shift.AgentEmail)
			breaks[agent] = append(breaks[agent], interval{shift.Start, shift.End})
			continue
		}
		byChannel[spec.Name] = append(byChannel[spec.Name], shift)
	}

	report := CoverageReport{Date: midnight.Format("2006-01-02")}
	for _, spec := range s.registry.All() {
		if spec.IsBreak {
			continue
		}
		channel := ChannelCoverage{Channel: spec.Name, MinStaff: spec.MinStaff}
		for _, hour := range spec.OperatingHours() {
			slotStart := midnight.Add(time.Duration(hour) * time.Hour)
			slotEnd := slotStart.Add(time.Hour)

			agents := make(map[string]struct{})
			for _, shift := range byChannel[spec.Name] {
				if !scheduler.Overlaps(shift.Start, shift.End, slotStart, slotEnd) {
					continue
				}
				if absent(absences, shift.AgentEmail, slotStart, slotEnd) {
					continue
				}
				agent := strings.ToLower(shift.AgentEmail)
				if onBreak(breaks[agent], slotStart, slotEnd) {
					continue
				}
				agents[agent] = struct{}{}
			}

			names := make([]string, 0, len(agents))
			for agent := range agents {
				names = append(names, agent)
			}
			sort.Strings(names)

			hc := HourCoverage{
				Hour:     hour,
				Staffed:  len(names),
				Required: spec.MinStaff,
				Short:    len(names) < spec.MinStaff,
				Agents:   names,
			}
			if hc.Short {
				report.Shortfalls++
			}
			channel.Hours = append(channel.Hours, hc)
		}
		report.Channels = append(report.Channels, channel)
	}
	return report, nil
}

// AgentMetrics totals each agent's scheduled hours within [from, to), split
// by channel. Break channels count toward BreakHours only, and break time
// nested in a working shift is subtracted from that shift. Status updates
// due are the whole number of StatusInterval periods worked per channel.
func (s *ReportService) AgentMetrics(ctx context.Context, from, to time.Time) ([]AgentMetrics, error) {
	if s == nil || s.shifts == nil {
		return nil, fmt.Errorf("shift repository not configured")
	}
	if from.IsZero() || to.IsZero() || !to.After(from) {
		vErr := &ValidationError{}
		vErr.add("to", "a range with to after from is required")
		return nil, vErr
	}

	shifts, err := s.shifts.ListShifts(ctx)
	if err != nil {
		return nil, err
	}

	// Breaks may sit inside a working shift; that time is not worked.
	breaks := make(map[string][]interval)
	for _, shift := range shifts {
		if !s.registry.Resolve(shift.Channel).IsBreak {
			continue
		}
		start, end := clip(shift.Start, shift.End, from, to)
		if end.After(start) {
			agent := strings.ToLower(shift.AgentEmail)
			breaks[agent] = append(breaks[agent], interval{start, end})
		}
	}
	for agent, list := range breaks {
		breaks[agent] = merge(list)
	}

	byAgent := make(map[string]*AgentMetrics)
	metricsFor := func(agent string) *AgentMetrics {
		m, ok := byAgent[agent]
		if !ok {
			m = &AgentMetrics{AgentEmail: agent, ChannelHours: make(map[string]float64)}
			byAgent[agent] = m
		}
		return m
	}
	for agent, list := range breaks {
		m := metricsFor(agent)
		for _, b := range list {
			m.BreakHours += b.end.Sub(b.start).Hours()
		}
	}
	for _, shift := range shifts {
		spec := s.registry.Resolve(shift.Channel)
		if spec.IsBreak {
			continue
		}
		start, end := clip(shift.Start, shift.End, from, to)
		if !end.After(start) {
			continue
		}
		agent := strings.ToLower(shift.AgentEmail)
		worked := end.Sub(start)
		for _, b := range breaks[agent] {
			worked -= overlap(start, end, b.start, b.end)
		}
		if worked <= 0 {
			continue
		}
		m := metricsFor(agent)
		m.ChannelHours[spec.Name] += worked.Hours()
		m.TotalHours += worked.Hours()
	}

	out := make([]AgentMetrics, 0, len(byAgent))
	for _, m := range byAgent {
		for channel, hours := range m.ChannelHours {
			spec := s.registry.Resolve(channel)
			if spec.StatusInterval > 0 {
				m.StatusUpdatesDue += int(hours / float64(spec.StatusInterval))
			}
		}
		if s.directory != nil {
			if person, err := s.directory.Lookup(ctx, m.AgentEmail); err == nil {
				m.Name = person.Name
			}
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentEmail < out[j].AgentEmail })
	return out, nil
}

func (s *ReportService) approvedAbsences(ctx context.Context) ([]TimeOff, error) {
	if s.timeOff == nil {
		return nil, nil
	}
	all, err := s.timeOff.ListTimeOff(ctx)
	if err != nil {
		return nil, err
	}
	approved := make([]TimeOff, 0, len(all))
	for _, req := range all {
		if req.Status == TimeOffApproved {
			approved = append(approved, req)
		}
	}
	return approved, nil
}

func absent(absences []TimeOff, agent string, start, end time.Time) bool {
	for _, req := range absences {
		if strings.EqualFold(req.AgentEmail, agent) && scheduler.Overlaps(req.Start, req.End, start, end) {
			return true
		}
	}
	return false
}

func clip(start, end, from, to time.Time) (time.Time, time.Time) {
	if start.Before(from) {
		start = from
	}
	if end.After(to) {
		end = to
	}
	return start, end
}

type interval struct {
	start, end time.Time
}

// merge sorts and coalesces overlapping intervals.
func merge(list []interval) []interval {
	sort.Slice(list, func(i, j int) bool { return list[i].start.Before(list[j].start) })
	out := list[:0]
	for _, iv := range list {
		if n := len(out); n > 0 && !iv.start.After(out[n-1].end) {
			if iv.end.After(out[n-1].end) {
				out[n-1].end = iv.end
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

func overlap(aStart, aEnd, bStart, bEnd time.Time) time.Duration {
	start, end := aStart, aEnd
	if bStart.After(start) {
		start = bStart
	}
	if bEnd.Before(end) {
		end = bEnd
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start)
}

func onBreak(breaks []interval, start, end time.Time) bool {
	for _, b := range breaks {
		if scheduler.Overlaps(b.start, b.end, start, end) {
			return true
		}
	}
	return false
}
