package tui

// Phase is the lifecycle position of one outbound call.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseMissingInput Phase = "missing_input"
	PhasePending      Phase = "pending"
	PhaseSucceeded    Phase = "succeeded"
	PhaseFailed       Phase = "failed"
)

// CallStatus is what the status region shows for one call kind.
type CallStatus struct {
	Phase  Phase
	Reason string
}

func idle() CallStatus                      { return CallStatus{Phase: PhaseIdle} }
func pending() CallStatus                   { return CallStatus{Phase: PhasePending} }
func missingInput(reason string) CallStatus { return CallStatus{Phase: PhaseMissingInput, Reason: reason} }
func succeeded(reason string) CallStatus    { return CallStatus{Phase: PhaseSucceeded, Reason: reason} }
func failed(reason string) CallStatus       { return CallStatus{Phase: PhaseFailed, Reason: reason} }

// Retryable reports whether ctrl+r applies.
func (s CallStatus) Retryable() bool { return s.Phase == PhaseFailed }

const (
	msgSelectPDF      = "Please select a PDF first."
	msgEnterQuery     = "Please enter a query."
	msgUploaded       = "PDF uploaded successfully!"
	msgAnswered       = "Answer received."
	msgUploading      = "Uploading..."
	msgQuerying       = "Waiting for answer..."
	msgHistoryOff     = "History is disabled."
	msgNoPDFsInFolder = "No PDF files in %s"
)
