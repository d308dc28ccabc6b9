package approval

import id "payguard/pkg/domain"

// The decision functions are pure: no I/O, no shared state, deterministic for
// identical inputs. That keeps the rules testable in isolation and safe to
// replay during audit reconciliation.
//
// Boundary comparisons are inclusive on both thresholds, which is asymmetric
// on purpose: an amount exactly at the auto-approve threshold passes (the
// threshold is an upper bound on "trivial"), while an amount exactly at the
// dual-approval threshold requires dual control (a lower bound on
// "high-risk"). Either way the boundary lands on the safer side for the
// control it gates.

// EvaluateExpense decides whether an expense claim may proceed without a
// human approver.
//
// Money already spent has no future exposure to gate, so reimbursements
// always auto-approve. Requests at or below the threshold auto-approve;
// anything above stays pending for human judgment. There is no auto-rejection
// path for expenses.
func EvaluateExpense(amountMinor int64, expenseType ExpenseType, autoApproveThreshold int64) Decision {
	if expenseType == ExpenseSpent {
		return Decision{
			ResultingStatus: StatusApproved,
			AutoApproved:    true,
			Reason:          ReasonAlreadySpent,
		}
	}
	if amountMinor <= autoApproveThreshold {
		return Decision{
			ResultingStatus: StatusApproved,
			AutoApproved:    true,
			Reason:          ReasonBelowThreshold,
		}
	}
	return Decision{ResultingStatus: StatusPending}
}

// EvaluatePayoutApproval applies maker-checker and dual-control to a payout
// approval attempt.
//
// Self-approval is checked before everything else: the initiator can never
// approve their own payout, regardless of amount. At or above the dual
// threshold the first qualifying approval parks the payout in
// pending_second_approval; the second approval must come from a different
// principal. Below the threshold a single non-initiator approval suffices.
func EvaluatePayoutApproval(amountMinor, dualApprovalThreshold int64, initiatedBy, approvedBy id.PrincipalID, firstApprover *id.PrincipalID) Decision {
	if initiatedBy == approvedBy {
		return Decision{
			ResultingStatus: StatusRejected,
			Reason:          ReasonSelfApproval,
		}
	}

	if amountMinor >= dualApprovalThreshold {
		if firstApprover == nil {
			return Decision{
				ResultingStatus:      StatusPendingSecondApproval,
				RequiresDualApproval: true,
				Reason:               ReasonNeedsSecondLeg,
			}
		}
		if *firstApprover == approvedBy {
			return Decision{
				ResultingStatus:      StatusRejected,
				RequiresDualApproval: true,
				Reason:               ReasonSameSecondApprover,
			}
		}
		return Decision{
			ResultingStatus:      StatusApproved,
			RequiresDualApproval: true,
		}
	}

	return Decision{ResultingStatus: StatusApproved}
}
