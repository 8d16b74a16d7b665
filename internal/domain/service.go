package domain

// KneeService computes knees for requests
type KneeService interface {
	Explore(req Request) (*Response, error)
	Sweep(base Request, params []Parameters) []*Response
}

// ProcessingTask is one parameter set of a sweep
type ProcessingTask struct {
	Index   int
	Request Request
}

type ProcessingResult struct {
	Index    int
	Response *Response
	Err      error
}
