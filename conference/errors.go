package conference

import "errors"

// Sentinel errors for conference operations.
// These errors enable reliable error classification using errors.Is().

// Lifecycle errors.
var (
	// ErrAlreadyRunning indicates Start was called twice.
	ErrAlreadyRunning = errors.New("conference already running")

	// ErrStopped indicates the conference has been torn down.
	ErrStopped = errors.New("conference stopped")

	// ErrInvalidConfig indicates a configuration that failed validation.
	ErrInvalidConfig = errors.New("invalid conference configuration")

	// ErrNoLayouts indicates the catalog has no layout usable for a canvas.
	ErrNoLayouts = errors.New("no usable layout")
)

// Member errors.
var (
	// ErrMemberNotFound indicates the member id is not in the conference.
	ErrMemberNotFound = errors.New("member not found")

	// ErrMemberExists indicates a member with the same id already joined.
	ErrMemberExists = errors.New("member already exists")

	// ErrInvalidMemberID indicates member id 0, which marks unbound layers.
	ErrInvalidMemberID = errors.New("invalid member id")

	// ErrNoVideo indicates the member has no video capability.
	ErrNoVideo = errors.New("member has no video")
)

// Canvas and layout errors.
var (
	// ErrCanvasNotFound indicates an unknown canvas id.
	ErrCanvasNotFound = errors.New("canvas not found")

	// ErrLayoutNotFound indicates an unknown layout name.
	ErrLayoutNotFound = errors.New("layout not found")

	// ErrGroupNotFound indicates an unknown layout group name.
	ErrGroupNotFound = errors.New("layout group not found")

	// ErrNoLayer indicates no layer could be bound.
	ErrNoLayer = errors.New("no eligible layer")

	// ErrPersonalCanvasLimit indicates the personal canvas budget is spent.
	ErrPersonalCanvasLimit = errors.New("personal canvas limit reached")
)

// Floor errors.
var (
	// ErrFloorLocked indicates the floor is locked against reassignment.
	ErrFloorLocked = errors.New("video floor locked")
)

// Recording errors.
var (
	// ErrRecordingNotFound indicates an unknown recording id.
	ErrRecordingNotFound = errors.New("recording not found")

	// ErrRecorderNotCapable indicates the recorder has no video track.
	ErrRecorderNotCapable = errors.New("recorder is not video capable")
)

// Frame errors.
var (
	// ErrQueueFull indicates a frame was dropped because the queue is full.
	ErrQueueFull = errors.New("frame queue full")

	// ErrInvalidFrame indicates a frame that failed validation.
	ErrInvalidFrame = errors.New("invalid video frame")
)
