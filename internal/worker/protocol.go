package worker

import (
	"encoding/json"
	"fmt"
	"runtime/debug"

	"github.com/piwi3910/SlabNest/internal/model"
)

// MessageType tags a frame.
type MessageType string

const (
	TypeCalculateNFP MessageType = "CALCULATE_NFP"
	TypeNFPResult    MessageType = "NFP_RESULT"
	TypeNFPError     MessageType = "NFP_ERROR"
	TypeError        MessageType = "ERROR"
)

// Request is a frame sent to a worker.
type Request struct {
	Type      MessageType   `json:"type"`
	ID        uint64        `json:"id"`
	A         model.Outline `json:"a,omitempty"`
	B         model.Outline `json:"b,omitempty"`
	RotationA float64       `json:"rotationA"`
	RotationB float64       `json:"rotationB"`
	IDs       [2]string     `json:"ids"`
}

// Response is a frame returned by a worker. NFP is set for NFP_RESULT,
// Message for NFP_ERROR and ERROR.
type Response struct {
	Type    MessageType     `json:"type"`
	ID      uint64          `json:"id"`
	NFP     []model.Outline `json:"nfp,omitempty"`
	Message string          `json:"message,omitempty"`
}

// ComputeFunc calculates the anchored no-fit polygon of a request.
type ComputeFunc func(a, b model.Outline, rotA, rotB float64) []model.Outline

// handleFrame decodes one request frame, runs it and encodes the reply.
// It never panics: a failing computation becomes an NFP_ERROR frame and an
// unreadable or unknown request an ERROR frame.
func handleFrame(frame []byte, compute ComputeFunc) []byte {
	var req Request
	if err := json.Unmarshal(frame, &req); err != nil {
		return encode(Response{Type: TypeError, Message: fmt.Sprintf("decode request: %v", err)})
	}

	var resp Response
	switch req.Type {
	case TypeCalculateNFP:
		resp = calculate(req, compute)
	default:
		resp = Response{Type: TypeError, ID: req.ID, Message: fmt.Sprintf("unknown message type %q", req.Type)}
	}
	return encode(resp)
}

func calculate(req Request, compute ComputeFunc) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			resp = Response{
				Type:    TypeNFPError,
				ID:      req.ID,
				Message: fmt.Sprintf("nfp %s/%s: %v\n%s", req.IDs[0], req.IDs[1], r, debug.Stack()),
			}
		}
	}()
	if len(req.A) < 3 || len(req.B) < 3 {
		return Response{Type: TypeNFPError, ID: req.ID, Message: "nfp needs two polygons"}
	}
	return Response{Type: TypeNFPResult, ID: req.ID, NFP: compute(req.A, req.B, req.RotationA, req.RotationB)}
}

func encode(resp Response) []byte {
	data, err := json.Marshal(resp)
	if err != nil {
		// Only NaN coordinates can get here.
		data, _ = json.Marshal(Response{Type: TypeNFPError, ID: resp.ID, Message: err.Error()})
	}
	return data
}
