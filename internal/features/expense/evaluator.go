package expense

import (
	"fmt"

	"go-expense/internal/features/workflow"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Verdict is the evaluator's answer for a claim's current history
type Verdict string

const (
	VerdictApprove Verdict = "Approve"
	VerdictReject  Verdict = "Reject"
	VerdictPending Verdict = "Pending"
)

// Outcome pairs the verdict with a human-readable reason for the UI
type Outcome struct {
	Verdict Verdict `json:"verdict"`
	Reason  string  `json:"reason"`
}

// Evaluate computes the decision for a claim given its workflow and the
// approval history recorded so far. Pure and deterministic: no I/O, no
// clock. The only error case is an unknown rule tag, which indicates a
// data-integrity bug and is not recoverable here.
//
// A single Rejected entry anywhere in history forces Reject regardless
// of rule type; a rejection is never overridden. A nil workflow or one
// with zero steps approves immediately: a claim with no governing
// workflow auto-approves.
func Evaluate(wf *workflow.Workflow, history []HistoryEntry) (Outcome, error) {
	for _, entry := range history {
		if entry.Decision == DecisionRejected {
			return Outcome{Verdict: VerdictReject, Reason: "claim was rejected by an approver"}, nil
		}
	}

	if wf == nil || len(wf.Steps) == 0 {
		return Outcome{Verdict: VerdictApprove, Reason: "no workflow / no steps configured"}, nil
	}

	approved := approvedEntries(history)

	switch wf.Rules.Type {
	case workflow.RuleSequential:
		return evalSequential(wf, approved), nil
	case workflow.RulePercentage:
		return evalPercentage(wf, approved), nil
	case workflow.RuleSpecificApprover:
		return evalSpecificApprover(wf, approved), nil
	case workflow.RuleHybrid:
		return evalHybrid(wf, approved), nil
	default:
		return Outcome{}, fmt.Errorf("unknown workflow rule type %q", wf.Rules.Type)
	}
}

func approvedEntries(history []HistoryEntry) []HistoryEntry {
	approved := make([]HistoryEntry, 0, len(history))
	for _, entry := range history {
		if entry.Decision == DecisionApproved {
			approved = append(approved, entry)
		}
	}
	return approved
}

func evalSequential(wf *workflow.Workflow, approved []HistoryEntry) Outcome {
	total := len(wf.Steps)
	if len(approved) >= total {
		return Outcome{Verdict: VerdictApprove, Reason: "all sequential approvals completed"}
	}
	return Outcome{
		Verdict: VerdictPending,
		Reason:  fmt.Sprintf("%d/%d sequential approvals completed", len(approved), total),
	}
}

func evalPercentage(wf *workflow.Workflow, approved []HistoryEntry) Outcome {
	total := len(wf.Steps)
	required := wf.Rules.PercentageApproval

	// Real division before comparing against the integer threshold
	currentPct := float64(len(approved)) / float64(total) * 100

	if currentPct >= float64(required) {
		return Outcome{
			Verdict: VerdictApprove,
			Reason:  fmt.Sprintf("%.1f%% approval reached (required: %d%%)", currentPct, required),
		}
	}
	return Outcome{
		Verdict: VerdictPending,
		Reason:  fmt.Sprintf("%.1f%% approval (required: %d%%)", currentPct, required),
	}
}

func evalSpecificApprover(wf *workflow.Workflow, approved []HistoryEntry) Outcome {
	for _, entry := range approved {
		if entry.ApproverID == wf.Rules.SpecificApprover {
			return Outcome{Verdict: VerdictApprove, Reason: "approved by specific approver"}
		}
	}
	// Never auto-rejects: only an explicit Reject entry rejects
	return Outcome{Verdict: VerdictPending, Reason: "waiting for specific approver"}
}

func evalHybrid(wf *workflow.Workflow, approved []HistoryEntry) Outcome {
	pctResult := evalPercentage(wf, approved)
	specResult := evalSpecificApprover(wf, approved)

	if wf.Rules.HybridOperator == workflow.OperatorAnd {
		if pctResult.Verdict == VerdictApprove && specResult.Verdict == VerdictApprove {
			return Outcome{Verdict: VerdictApprove, Reason: "both percentage and specific approver conditions met"}
		}
		return Outcome{
			Verdict: VerdictPending,
			Reason:  fmt.Sprintf("%s AND %s", pctResult.Reason, specResult.Reason),
		}
	}

	// OR: report the satisfied condition when approving
	if specResult.Verdict == VerdictApprove {
		return specResult
	}
	if pctResult.Verdict == VerdictApprove {
		return pctResult
	}
	return Outcome{
		Verdict: VerdictPending,
		Reason:  fmt.Sprintf("%s OR %s", pctResult.Reason, specResult.Reason),
	}
}

// CurrentApprovers returns who the claim is waiting on, for pending
// lists and the evaluation preview. For the sequential rule that is the
// step at the claim's cursor; for the other rules it is every step
// approver (and the designated approver) that has not decided yet.
func CurrentApprovers(wf *workflow.Workflow, history []HistoryEntry, currentApproverIndex int) []primitive.ObjectID {
	if wf == nil || len(wf.Steps) == 0 {
		return nil
	}

	decided := make(map[primitive.ObjectID]bool, len(history))
	for _, entry := range history {
		decided[entry.ApproverID] = true
	}

	switch wf.Rules.Type {
	case workflow.RuleSequential:
		if currentApproverIndex >= 0 && currentApproverIndex < len(wf.Steps) {
			return []primitive.ObjectID{wf.Steps[currentApproverIndex].ApproverID}
		}
		return nil
	default:
		var waiting []primitive.ObjectID
		seen := make(map[primitive.ObjectID]bool)
		for _, step := range wf.Steps {
			if !decided[step.ApproverID] && !seen[step.ApproverID] {
				waiting = append(waiting, step.ApproverID)
				seen[step.ApproverID] = true
			}
		}
		if wf.Rules.Type == workflow.RuleSpecificApprover || wf.Rules.Type == workflow.RuleHybrid {
			specific := wf.Rules.SpecificApprover
			if !specific.IsZero() && !decided[specific] && !seen[specific] {
				waiting = append(waiting, specific)
			}
		}
		return waiting
	}
}
