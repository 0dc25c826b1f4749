package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/example/staff-dashboard/internal/api"
	"github.com/example/staff-dashboard/internal/dashboard"
)

var (
	errUsage = errors.New("usage")
	// errReported marks failures the notifier already printed.
	errReported = errors.New("reported")
)

const usage = `usage: dashctl <command> [flags]

commands:
  signin -credential TOKEN     sign in with a Google ID token
  whoami                       show the current session
  signout                      forget the current session
  schedule [-from] [-to] [-agent]
  coverage [-date]
  metrics [-from] [-to]
  people
  channels
  timeoff [-from] [-to]
  request-timeoff -start -end [-reason] [-agent]
  decide -id -status approved|denied
  edit-shift [-id] [-agent -channel -start -end -notes] [-delete]
`

type command func(ctx context.Context, args []string) error

type cli struct {
	app      *dashboard.App
	out      io.Writer
	now      func() time.Time
	commands map[string]command
}

func newCLI(app *dashboard.App, out io.Writer) *cli {
	c := &cli{app: app, out: out, now: time.Now}
	c.commands = map[string]command{
		"signin":          c.signIn,
		"whoami":          c.whoAmI,
		"signout":         c.signOut,
		"schedule":        c.schedule,
		"coverage":        c.coverage,
		"metrics":         c.metrics,
		"people":          c.people,
		"channels":        c.channels,
		"timeoff":         c.timeOff,
		"request-timeoff": c.requestTimeOff,
		"decide":          c.decide,
		"edit-shift":      c.editShift,
	}
	return c
}

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(c.out, usage)
		return errUsage
	}
	cmd, ok := c.commands[args[0]]
	if !ok {
		fmt.Fprint(c.out, usage)
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
	return cmd(ctx, args[1:])
}

func reported(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", errReported, err)
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %v", errUsage, fs.Name(), err)
	}
	return nil
}

// session resumes the stored session or asks the user to sign in.
func (c *cli) session(ctx context.Context) (*dashboard.SessionContext, error) {
	sess, ok := c.app.Resume(ctx)
	if !ok {
		return nil, errors.New("サインインしていません。dashctl signin を実行してください。")
	}
	return sess, nil
}

// dateRange parses -from/-to, defaulting to the current week starting today.
func (c *cli) dateRange(from, to string) (time.Time, time.Time, error) {
	today := c.now()
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	end := start.AddDate(0, 0, 6)
	var err error
	if from != "" {
		if start, err = time.ParseInLocation(time.DateOnly, from, today.Location()); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: -from: %v", errUsage, err)
		}
		if to == "" {
			end = start.AddDate(0, 0, 6)
		}
	}
	if to != "" {
		if end, err = time.ParseInLocation(time.DateOnly, to, today.Location()); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: -to: %v", errUsage, err)
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: -to is before -from", errUsage)
	}
	return start, end, nil
}

func (c *cli) table() *tabwriter.Writer {
	return tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
}

func (c *cli) signIn(ctx context.Context, args []string) error {
	fs := newFlags("signin")
	credential := fs.String("credential", os.Getenv("DASHBOARD_CREDENTIAL"), "Google ID token")
	if err := parse(fs, args); err != nil {
		return err
	}
	if strings.TrimSpace(*credential) == "" {
		return fmt.Errorf("%w: signin requires -credential", errUsage)
	}
	sess, err := c.app.SignIn(ctx, *credential)
	if err != nil {
		return reported(err)
	}
	fmt.Fprintf(c.out, "%s (%s) としてサインインしました。\n", sess.Name, sess.Email)
	return nil
}

func (c *cli) whoAmI(ctx context.Context, args []string) error {
	if err := parse(newFlags("whoami"), args); err != nil {
		return err
	}
	sess, err := c.session(ctx)
	if err != nil {
		return err
	}
	role := "agent"
	if sess.IsManager {
		role = "manager"
	}
	w := c.table()
	fmt.Fprintf(w, "email\t%s\n", sess.Email)
	fmt.Fprintf(w, "name\t%s\n", sess.Name)
	fmt.Fprintf(w, "role\t%s\n", role)
	fmt.Fprintf(w, "signed in\t%s\n", sess.IssuedAt.Local().Format(time.DateTime))
	fmt.Fprintf(w, "last activity\t%s\n", sess.LastActivity.Local().Format(time.DateTime))
	return w.Flush()
}

func (c *cli) signOut(ctx context.Context, args []string) error {
	if err := parse(newFlags("signout"), args); err != nil {
		return err
	}
	if err := c.app.SignOut(ctx); err != nil {
		return reported(err)
	}
	fmt.Fprintln(c.out, "サインアウトしました。")
	return nil
}

func (c *cli) schedule(ctx context.Context, args []string) error {
	fs := newFlags("schedule")
	from := fs.String("from", "", "first day (YYYY-MM-DD)")
	to := fs.String("to", "", "last day, inclusive (YYYY-MM-DD)")
	agent := fs.String("agent", "", "only this agent's shifts")
	if err := parse(fs, args); err != nil {
		return err
	}
	start, end, err := c.dateRange(*from, *to)
	if err != nil {
		return err
	}
	sess, err := c.session(ctx)
	if err != nil {
		return err
	}
	shifts, err := c.app.Schedule(ctx, sess, start, end, *agent)
	if err != nil {
		return reported(err)
	}

	w := c.table()
	fmt.Fprintln(w, "ID\tAGENT\tCHANNEL\tSTART\tEND\tNOTES")
	for _, s := range shifts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.AgentEmail, s.Channel,
			s.Start.Local().Format("01-02 15:04"), s.End.Local().Format("15:04"), s.Notes)
	}
	return w.Flush()
}

func (c *cli) coverage(ctx context.Context, args []string) error {
	fs := newFlags("coverage")
	date := fs.String("date", "", "day to report (YYYY-MM-DD), defaults to today")
	if err := parse(fs, args); err != nil {
		return err
	}
	day, _, err := c.dateRange(*date, *date)
	if err != nil {
		return err
	}
	sess, err := c.session(ctx)
	if err != nil {
		return err
	}
	report, err := c.app.Coverage(ctx, sess, day)
	if err != nil {
		return reported(err)
	}

	w := c.table()
	fmt.Fprintln(w, "CHANNEL\tHOUR\tSTAFFED\tREQUIRED\t")
	for _, ch := range report.Channels {
		for _, h := range ch.Hours {
			mark := ""
			if h.Short {
				mark = "不足"
			}
			fmt.Fprintf(w, "%s\t%02d:00\t%d\t%d\t%s\n", ch.Channel, h.Hour, h.Staffed, h.Required, mark)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s: 人員不足 %d 件\n", report.Date, report.Shortfalls)
	return nil
}

func (c *cli) metrics(ctx context.Context, args []string) error {
	fs := newFlags("metrics")
	from := fs.String("from", "", "first day (YYYY-MM-DD)")
	to := fs.String("to", "", "last day, inclusive (YYYY-MM-DD)")
	if err := parse(fs, args); err != nil {
		return err
	}
	start, end, err := c.dateRange(*from, *to)
	if err != nil {
		return err
	}
	sess, err := c.session(ctx)
	if err != nil {
		return err
	}
	list, err := c.app.AgentMetrics(ctx, sess, start, end)
	if err != nil {
		return reported(err)
	}

	w := c.table()
	fmt.Fprintln(w, "AGENT\tTOTAL\tBREAK\tSTATUS UPDATES\tCHANNELS")
	for _, m := range list.Agents {
		names := make([]string, 0, len(m.ChannelHours))
		for name := range m.ChannelHours {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, 0, len(names))
		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%.1fh", name, m.ChannelHours[name]))
		}
		label := m.AgentEmail
		if m.Name != "" {
			label = m.Name
		}
		fmt.Fprintf(w, "%s\t%.1fh\t%.1fh\t%d\t%s\n", label, m.TotalHours, m.BreakHours, m.StatusUpdatesDue, strings.Join(parts, " "))
	}
	return w.Flush()
}

func (c *cli) people(ctx context.Context, args []string) error {
	if err := parse(newFlags("people"), args); err != nil {
		return err
	}
	sess, err := c.session(ctx)
	if err != nil {
		return err
	}
	people, err := c.app.People(ctx, sess)
	if err != nil {
		return reported(err)
	}
	w := c.table()
	fmt.Fprintln(w, "EMAIL\tNAME\tMANAGER\tACTIVE\tCHANNELS")
	for _, p := range people {
		fmt.Fprintf(w, "%s\t%s\t%t\t%t\t%s\n", p.Email, p.Name, p.IsManager, p.Active, strings.Join(p.Channels, ","))
	}
	return w.Flush()
}

func (c *cli) channels(ctx context.Context, args []string) error {
	if err := parse(newFlags("channels"), args); err != nil {
		return err
	}
	sess, err := c.session(ctx)
	if err != nil {
		return err
	}
	list, err := c.app.Channels(ctx, sess)
	if err != nil {
		return reported(err)
	}
	w := c.table()
	fmt.Fprintln(w, "NAME\tABBR\tHOURS\tMIN STAFF")
	for _, ch := range list {
		fmt.Fprintf(w, "%s\t%s\t%02d-%02d\t%d\n", ch.Name, ch.Abbreviation, ch.StartHour, ch.EndHour, ch.MinStaff)
	}
	return w.Flush()
}

func (c *cli) timeOff(ctx context.Context, args []string) error {
	fs := newFlags("timeoff")
	from := fs.String("from", "", "first day (YYYY-MM-DD)")
	to := fs.String("to", "", "last day, inclusive (YYYY-MM-DD)")
	if err := parse(fs, args); err != nil {
		return err
	}
	start, end, err := c.dateRange(*from, *to)
	if err != nil {
		return err
	}
	sess, err := c.session(ctx)
	if err != nil {
		return err
	}
	requests, err := c.app.TimeOff(ctx, sess, start, end)
	if err != nil {
		return reported(err)
	}
	c.printTimeOff(requests)
	return nil
}

func (c *cli) printTimeOff(requests []api.TimeOff) {
	w := c.table()
	fmt.Fprintln(w, "ID\tAGENT\tSTART\tEND\tSTATUS\tREASON")
	for _, r := range requests {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.AgentEmail,
			r.Start.Local().Format("01-02 15:04"), r.End.Local().Format("01-02 15:04"),
			r.Status, r.Reason)
	}
	_ = w.Flush()
}

func (c *cli) requestTimeOff(ctx context.Context, args []string) error {
	fs := newFlags("request-timeoff")
	start := fs.String("start", "", "start (RFC 3339)")
	end := fs.String("end", "", "end (RFC 3339)")
	reason := fs.String("reason", "", "reason shown to managers")
	agent := fs.String("agent", "", "request on behalf of another agent (managers only)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *start == "" || *end == "" {
		return fmt.Errorf("%w: request-timeoff requires -start and -end", errUsage)
	}
	sess, err := c.session(ctx)
	if err != nil {
		return err
	}
	created, err := c.app.SubmitTimeOff(ctx, sess, api.TimeOffRequest{
		AgentEmail: *agent,
		Start:      *start,
		End:        *end,
		Reason:     *reason,
	})
	if err != nil {
		return reported(err)
	}
	c.printTimeOff([]api.TimeOff{created})
	return nil
}

func (c *cli) decide(ctx context.Context, args []string) error {
	fs := newFlags("decide")
	id := fs.String("id", "", "time-off request id")
	status := fs.String("status", "", "approved or denied")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *id == "" || *status == "" {
		return fmt.Errorf("%w: decide requires -id and -status", errUsage)
	}
	sess, err := c.session(ctx)
	if err != nil {
		return err
	}
	decided, err := c.app.DecideTimeOff(ctx, sess, *id, *status)
	if err != nil {
		return reported(err)
	}
	c.printTimeOff([]api.TimeOff{decided})
	return nil
}

// editShift creates, replaces or deletes one shift while holding its edit
// lock. New shifts are locked per agent so two managers cannot roster the
// same person at once.
func (c *cli) editShift(ctx context.Context, args []string) error {
	fs := newFlags("edit-shift")
	id := fs.String("id", "", "shift id; empty creates a new shift")
	agent := fs.String("agent", "", "agent email")
	channel := fs.String("channel", "", "channel name or alias")
	start := fs.String("start", "", "start (RFC 3339)")
	end := fs.String("end", "", "end (RFC 3339)")
	notes := fs.String("notes", "", "free text notes")
	remove := fs.Bool("delete", false, "delete the shift given by -id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *remove && *id == "" {
		return fmt.Errorf("%w: -delete requires -id", errUsage)
	}
	if !*remove && (*agent == "" || *start == "" || *end == "") {
		return fmt.Errorf("%w: edit-shift requires -agent, -start and -end", errUsage)
	}

	sess, err := c.session(ctx)
	if err != nil {
		return err
	}
	recordID := "shift:" + *id
	if *id == "" {
		recordID = "roster:" + strings.ToLower(*agent)
	}
	editor, err := c.app.OpenEditor(ctx, sess, recordID)
	if err != nil {
		return reported(err)
	}
	defer editor.Close()

	if *remove {
		if err := editor.DeleteShift(ctx, *id); err != nil {
			return reported(err)
		}
		fmt.Fprintf(c.out, "シフト %s を削除しました。\n", *id)
		return nil
	}

	out, err := editor.SaveShift(ctx, *id, api.ShiftRequest{
		AgentEmail: *agent,
		Channel:    *channel,
		Start:      *start,
		End:        *end,
		Notes:      *notes,
	})
	if err != nil {
		return reported(err)
	}
	fmt.Fprintf(c.out, "シフト %s を保存しました (%s %s-%s)。\n",
		out.Shift.ID, out.Shift.Channel,
		out.Shift.Start.Local().Format("01-02 15:04"), out.Shift.End.Local().Format("15:04"))
	for _, warning := range out.Warnings {
		fmt.Fprintf(c.out, "警告: %s (%s と重複)\n", warning.Type, warning.WithID)
	}
	return nil
}
