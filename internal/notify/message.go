package notify

import (
	"fmt"
	"strings"

	"github.com/nf-osi/synapse-jobs/internal/domain"
)

const (
	successToken = ":white_check_mark:"
	failureToken = ":x:"
	worriedToken = ":worried:"
)

// OutcomeText formats the chat message for one outcome
func OutcomeText(schedule, jobLabel string, o domain.Outcome) string {
	prefix := schedule + " - " + jobLabel

	if !o.Success {
		return fmt.Sprintf("%s %s failed just now for *%s* %s", failureToken, prefix, o.Target, worriedToken)
	}

	switch {
	case o.Job == domain.JobStatusPromoter && o.DryRun:
		return fmt.Sprintf("%s %s succeeded (dry run), %d candidate project(s) found, none updated just now.", successToken, prefix, o.Candidates)
	case o.Job == domain.JobStatusPromoter:
		return fmt.Sprintf("%s %s succeeded, %d project(s) updated just now.", successToken, prefix, o.Updated)
	case o.DryRun:
		return fmt.Sprintf("%s %s succeeded (dry run) for *%s* just now.", successToken, prefix, o.Target)
	default:
		return fmt.Sprintf("%s %s succeeded, updated to *%s.%d* just now.", successToken, prefix, o.Target, o.Version)
	}
}

// SummaryText formats one chat message for a whole run. A promoter run has a single
// outcome, so its summary is that outcome's message with the updated count.
func SummaryText(schedule, jobLabel string, result *domain.RunResult) string {
	if result.Job == domain.JobStatusPromoter && len(result.Outcomes) == 1 {
		return OutcomeText(schedule, jobLabel, result.Outcomes[0])
	}

	prefix := schedule + " - " + jobLabel

	if !result.Failed() {
		updated := make([]string, 0, len(result.Outcomes))
		for _, o := range result.Outcomes {
			if o.Version > 0 {
				updated = append(updated, fmt.Sprintf("*%s.%d*", o.Target, o.Version))
			} else {
				updated = append(updated, "*"+o.Target+"*")
			}
		}
		return fmt.Sprintf("%s %s succeeded, updated %s just now.", successToken, prefix, strings.Join(updated, ", "))
	}

	var failed []string
	for _, o := range result.Outcomes {
		if !o.Success {
			failed = append(failed, "*"+o.Target+"*")
		}
	}
	return fmt.Sprintf("%s %s failed just now for %s %s (%d of %d succeeded)",
		failureToken, prefix, strings.Join(failed, ", "), worriedToken, result.Succeeded(), len(result.Outcomes))
}
