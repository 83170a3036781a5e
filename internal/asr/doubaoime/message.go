package doubaoime

// FrameState marks a TaskRequest's position in the audio stream.
type FrameState int32

const (
	FrameFirst  FrameState = 1
	FrameMiddle FrameState = 3
	FrameLast   FrameState = 9
)

// field numbers for AsrRequest / AsrResponse, per spec.md section 4.2.3's
// wire model: {token, service_name, method_name, payload, audio_data,
// request_id, frame_state}.
const (
	fieldToken       = 1
	fieldServiceName = 2
	fieldMethodName  = 3
	fieldPayload     = 4
	fieldAudioData   = 5
	fieldRequestID   = 6
	fieldFrameState  = 7

	// response-only fields, carried on the same wire shape.
	fieldTaskID         = 8
	fieldMessageType    = 9
	fieldStatusCode     = 10
	fieldStatusMessage  = 11
	fieldResultJSON     = 12
)

// asrRequest is the manually encoded protobuf-compatible client message.
type asrRequest struct {
	token       string
	serviceName string
	methodName  string
	payload     string // JSON
	audioData   []byte // opus bytes, empty for control messages
	requestID   string
	frameState  FrameState
}

func (r asrRequest) encode() []byte {
	buf := make([]byte, 0, 64+len(r.payload)+len(r.audioData))
	buf = putString(buf, fieldToken, r.token)
	buf = putString(buf, fieldServiceName, r.serviceName)
	buf = putString(buf, fieldMethodName, r.methodName)
	buf = putString(buf, fieldPayload, r.payload)
	if len(r.audioData) > 0 {
		buf = putBytes(buf, fieldAudioData, r.audioData)
	}
	buf = putString(buf, fieldRequestID, r.requestID)
	buf = putInt(buf, fieldFrameState, int64(r.frameState))
	return buf
}

// asrResponse is the decoded server message.
type asrResponse struct {
	requestID     string
	taskID        string
	messageType   string
	statusCode    int64
	statusMessage string
	resultJSON    string
}

func decodeResponse(data []byte) (asrResponse, error) {
	fields, err := decodeFields(data)
	if err != nil {
		return asrResponse{}, err
	}

	return asrResponse{
		requestID:     firstString(fields, fieldRequestID),
		taskID:        firstString(fields, fieldTaskID),
		messageType:   firstString(fields, fieldMessageType),
		statusCode:    int64(firstVarint(fields, fieldStatusCode)),
		statusMessage: firstString(fields, fieldStatusMessage),
		resultJSON:    firstString(fields, fieldResultJSON),
	}, nil
}

// decodeRequest reverses encode; it exists primarily so the wire codec can
// be round-trip tested without a live session, per spec.md section 8's
// "decode(encode(msg)) == msg for all well-formed AsrRequests" property.
func decodeRequest(data []byte) (asrRequest, error) {
	fields, err := decodeFields(data)
	if err != nil {
		return asrRequest{}, err
	}
	return asrRequest{
		token:       firstString(fields, fieldToken),
		serviceName: firstString(fields, fieldServiceName),
		methodName:  firstString(fields, fieldMethodName),
		payload:     firstString(fields, fieldPayload),
		audioData:   firstBytes(fields, fieldAudioData),
		requestID:   firstString(fields, fieldRequestID),
		frameState:  FrameState(firstVarint(fields, fieldFrameState)),
	}, nil
}

// Server-asserted message types that drive the session state machine.
const (
	msgTaskStarted     = "TaskStarted"
	msgTaskFailed      = "TaskFailed"
	msgSessionStarted  = "SessionStarted"
	msgSessionFailed   = "SessionFailed"
	msgSessionFinished = "SessionFinished"
)
