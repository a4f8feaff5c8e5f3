package prompts

// Instructions injected by the orchestration loop as user-role messages.
// These are corrections and wrap-ups, not templates — they carry no
// dynamic parts.

// VerificationInstruction asks the model to double check a draft answer
// against the tool results already gathered this run.
const VerificationInstruction = `Before finalizing: verify your previous answer
against the tool results above. If anything is inconsistent or unsupported by
those results, provide a corrected answer. If the answer is accurate, repeat it.`

// SummarizeProgressInstruction is the final instruction when the round cap
// is reached: a plain completion over everything gathered so far.
const SummarizeProgressInstruction = `You have used all available tool rounds.
Summarize what you accomplished and what remains unfinished, based only on the
tool results above. Do not request any more tools.`

// GroundingNudge tells the model to consult tools instead of answering
// from assumption. Injected at most once per run.
const GroundingNudge = `Do not answer from assumption. The question concerns
external state — call the relevant tools now to check the actual status, then
answer based on their results.`

// CapabilityListingNudge directs the model to enumerate its real
// capabilities via the listing tool before describing them.
const CapabilityListingNudge = `Before describing what you can or cannot do,
call the list_capabilities tool and base your answer on its output.`

// CapabilityCorrection fires when the model claims an available action is
// unsupported or privacy-restricted. Injected at most once per run.
const CapabilityCorrection = `Your previous answer claimed a restriction or
missing capability that does not match your actual tool set. Re-verify using
the relevant status or capability tools, then answer again based on what they
report.`

// PlanCompleted is the canned final answer when the model goes silent
// after recording a plan.
const PlanCompleted = "All planned steps have been completed."
