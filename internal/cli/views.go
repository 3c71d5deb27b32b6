package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/roach88/huddle/internal/model"
	"github.com/roach88/huddle/internal/mpr"
	"github.com/roach88/huddle/internal/queue"
	"github.com/roach88/huddle/internal/session"
)

// gameView is the operator's picture of the active game.
type gameView struct {
	SessionID     string             `json:"session_id"`
	GameID        string             `json:"game_id"`
	Opponent      string             `json:"opponent,omitempty"`
	Quarter       int                `json:"quarter"`
	Period        string             `json:"period"`
	Mode          model.Mode         `json:"mode"`
	PlayNumber    int                `json:"play_number"`
	Selected      []model.PlayerID   `json:"selected"`
	Participation []participationRow `json:"participation"`
	Plays         int                `json:"plays"`
}

type participationRow struct {
	PlayerID model.PlayerID `json:"player_id"`
	Jersey   int            `json:"jersey"`
	Name     string         `json:"name,omitempty"`
	Eligible bool           `json:"eligible"`
	Plays    int            `json:"plays"`
}

func newGameView(snap session.Snapshot, quarters int) gameView {
	v := gameView{
		SessionID:     snap.SessionID,
		GameID:        snap.Meta.GameID,
		Opponent:      snap.Meta.Opponent,
		Quarter:       snap.Quarter,
		Period:        periodLabel(snap.Quarter, quarters),
		Mode:          snap.Mode,
		PlayNumber:    snap.PlayNumber,
		Selected:      snap.Selected,
		Participation: make([]participationRow, 0, len(snap.Roster)),
		Plays:         len(snap.History),
	}
	for _, p := range snap.Roster {
		v.Participation = append(v.Participation, participationRow{
			PlayerID: p.ID,
			Jersey:   p.Jersey,
			Name:     p.Name,
			Eligible: p.Eligible,
			Plays:    snap.Participation[p.ID],
		})
	}
	return v
}

// periodLabel names a quarter; quarters past regulation are overtime.
func periodLabel(q, regulation int) string {
	if regulation > 0 && q > regulation {
		return fmt.Sprintf("OT%d", q-regulation)
	}
	return fmt.Sprintf("Q%d", q)
}

func (v gameView) WriteText(w io.Writer) error {
	title := v.GameID
	if v.Opponent != "" {
		title += " vs " + v.Opponent
	}
	fmt.Fprintf(w, "Game %s (session %s)\n", title, v.SessionID)
	fmt.Fprintf(w, "%s  %s  play #%d  (%d recorded)\n", v.Period, v.Mode, v.PlayNumber, v.Plays)
	fmt.Fprintf(w, "Selected: %s\n\n", joinIDs(v.Selected))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tPLAYER\tPLAYS\t")
	for _, r := range v.Participation {
		name := r.Name
		if !r.Eligible {
			name += " (ineligible)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t\n", r.Jersey, name, r.Plays)
	}
	return tw.Flush()
}

// playView reports a recorded or undone play.
type playView struct {
	Action string          `json:"action"` // "recorded" or "undone"
	Play   model.PlayEntry `json:"play"`
	Queue  queueSummary    `json:"queue"`
}

func (v playView) WriteText(w io.Writer) error {
	p := v.Play
	fmt.Fprintf(w, "Play #%d %s: %s %s, Q%d, players %s\n",
		p.PlayNumber, v.Action, p.Mode, p.Result, p.Quarter, joinIDs(p.Players))
	return v.Queue.WriteText(w)
}

// queueSummary is the one-line sync status shown after a mutation.
type queueSummary struct {
	Online  bool         `json:"online"`
	Status  queue.Status `json:"status"`
	Pending int          `json:"pending"`
	Failed  int          `json:"failed"`
}

func newQueueSummary(s queue.State) queueSummary {
	return queueSummary{Online: s.Online, Status: s.Status, Pending: len(s.Pending), Failed: len(s.Failed)}
}

func (v queueSummary) WriteText(w io.Writer) error {
	conn := "offline"
	if v.Online {
		conn = "online"
	}
	_, err := fmt.Fprintf(w, "Sync: %s, %s, %d pending, %d failed\n", conn, v.Status, v.Pending, v.Failed)
	return err
}

// messageView is a plain confirmation plus sync status.
type messageView struct {
	Message string       `json:"message"`
	Queue   queueSummary `json:"queue"`
}

func (v messageView) WriteText(w io.Writer) error {
	fmt.Fprintln(w, v.Message)
	return v.Queue.WriteText(w)
}

// complianceView is the MPR report.
type complianceView struct {
	Summary mpr.Summary     `json:"summary"`
	Percent int             `json:"percent"`
	Players []complianceRow `json:"players"`
}

type complianceRow struct {
	mpr.PlayerCompliance
	Shortfall int `json:"shortfall"`
}

func newComplianceView(rows []mpr.PlayerCompliance, sum mpr.Summary, rules mpr.Rules) complianceView {
	v := complianceView{Summary: sum, Percent: rules.Percent, Players: make([]complianceRow, len(rows))}
	for i, pc := range rows {
		v.Players[i] = complianceRow{PlayerCompliance: pc, Shortfall: mpr.Shortfall(pc, sum.MinPlays)}
	}
	return v
}

func (v complianceView) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "Offensive plays: %d  minimum (%d%%): %d  below minimum: %d of %d\n\n",
		v.Summary.OffensivePlays, v.Percent, v.Summary.MinPlays, v.Summary.BelowMinimum, v.Summary.Eligible)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tPLAYER\tPLAYS\tPCT\tNEEDS\t")
	for _, r := range v.Players {
		mark := "✓"
		if !r.MeetsMinimum {
			mark = "✗"
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%.1f%%\t%d\t%s\n", r.Jersey, r.Name, r.Plays, r.Pct, r.Shortfall, mark)
	}
	return tw.Flush()
}

// queueView lists pending actions and dead letters.
type queueView struct {
	queueSummary
	PendingActions []model.OfflineAction `json:"pending_actions"`
	FailedActions  []model.FailedAction  `json:"failed_actions"`
	Report         *queue.Report         `json:"report,omitempty"`
}

func newQueueView(s queue.State, rep *queue.Report) queueView {
	return queueView{
		queueSummary:   newQueueSummary(s),
		PendingActions: s.Pending,
		FailedActions:  s.Failed,
		Report:         rep,
	}
}

func (v queueView) WriteText(w io.Writer) error {
	if v.Report != nil {
		fmt.Fprintf(w, "Sync pass: %d attempted, %d succeeded, %d requeued, %d dead-lettered\n",
			v.Report.Attempted, v.Report.Succeeded, v.Report.Requeued, v.Report.DeadLettered)
	}
	if err := v.queueSummary.WriteText(w); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if len(v.PendingActions) > 0 {
		fmt.Fprintln(tw, "\nPENDING\tTYPE\tENTITY\tRETRIES\tQUEUED\t")
		for _, a := range v.PendingActions {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t\n", a.ID, a.Type, a.Entity, a.Retries, a.EnqueuedAt.Format(time.RFC3339))
		}
	}
	if len(v.FailedActions) > 0 {
		fmt.Fprintln(tw, "\nFAILED\tTYPE\tENTITY\tLAST ATTEMPT\tERROR\t")
		for _, a := range v.FailedActions {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n", a.ID, a.Type, a.Entity, a.LastAttemptAt.Format(time.RFC3339), a.Error)
		}
	}
	return tw.Flush()
}

func joinIDs(ids []model.PlayerID) string {
	if len(ids) == 0 {
		return "none"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ", ")
}
