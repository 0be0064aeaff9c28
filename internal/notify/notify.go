// Package notify assembles stakeholder email drafts for launch reports.
// Actual dispatch is behind the Mailer interface; the server only builds
// drafts and hands them to whatever implementation is configured.
package notify

import (
	"context"
	"fmt"
	"strings"

	"launchpulse/internal/analytics"
)

// Message is one outbound email draft.
type Message struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

// Mailer dispatches assembled messages. Implementations own transport,
// authentication and retry policy.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NopMailer discards messages. Used when no mail transport is configured.
type NopMailer struct{}

// Send implements Mailer.
func (NopMailer) Send(ctx context.Context, msg Message) error { return nil }

// BuildLaunchReport assembles the stakeholder draft for one use case's
// lift report. Returns false when the launch has no stakeholders to
// address.
func BuildLaunchReport(launch analytics.FeatureLaunch, results []analytics.AnalysisResult) (Message, bool) {
	if len(launch.Stakeholders) == 0 {
		return Message{}, false
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Launch performance report for %s (launched %s)\n\n",
		launch.UseCase, analytics.Day(launch.LaunchDate).Format(analytics.ISODate))
	if launch.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", launch.Description)
	}

	for _, r := range results {
		if r.UseCase != launch.UseCase {
			continue
		}
		unit := "%"
		if r.IsBPS {
			unit = " bps"
		}
		fmt.Fprintf(&b, "%-8s post lift %+.4g%s (TY %.4g vs LY %.4g), pre/post comp %+.4g%s\n",
			r.KPI, r.PostLift, unit, r.PostTY, r.PostLY, r.PrePostCompLift, unit)
	}

	return Message{
		To:      launch.Stakeholders,
		Subject: fmt.Sprintf("Launch KPI report: %s", launch.UseCase),
		Body:    b.String(),
	}, true
}
