package record

// Result is the outcome of one enrichment task: either a successful
// partial update or a failure with its cause. A failed result never carries
// an update.
type Result struct {
	RecordID ID
	Update   Update
	Err      error
}

// Succeeded wraps a successful update. The result is keyed by the record id
// embedded in the update.
func Succeeded(u Update) Result {
	return Result{RecordID: u.RecordID, Update: u}
}

// Failed reports that no update could be produced for id.
func Failed(id ID, cause error) Result {
	return Result{RecordID: id, Err: cause}
}

// OK reports whether the result carries an update.
func (r Result) OK() bool {
	return r.Err == nil
}
