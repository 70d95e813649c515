package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"mindvault/internal/app"
	"mindvault/internal/domain"
	"mindvault/internal/metrics"
)

// WSHandler runs a live quiz attempt over a websocket. The attempt is held
// server side, so a reconnect resumes with the answers already given.
type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	ConceptID string `json:"conceptId"`
	Answer    string `json:"answer"`
}

type submitPayload struct {
	TimeElapsed *int `json:"timeElapsed"`
}

type livePayload struct {
	Quiz           []domain.QuizItem `json:"quiz"`
	TotalQuestions int               `json:"totalQuestions"`
	Answers        map[string]string `json:"answers"`
}

type progressPayload struct {
	ConceptID string `json:"conceptId"`
	Answered  int    `json:"answered"`
	Total     int    `json:"totalQuestions"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS opens the attempt before upgrading so a folder without questions
// is reported as a plain HTTP error.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	ownerID := ownerFrom(r.Context())
	folderID := chi.URLParam(r, "folderId")

	quiz, attempt, err := h.service.StartAttempt(r.Context(), ownerID, folderID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	metrics.LiveConnectionOpened()
	defer metrics.LiveConnectionClosed()

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	// emit gives up once the writer has stopped on a broken connection.
	emit := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}

	emit(outboundMessage[any]{Type: "quiz", Payload: livePayload{
		Quiz:           quiz.Items,
		TotalQuestions: len(quiz.Items),
		Answers:        attempt.Answers,
	}})

	finished := false
	for !finished {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				emit(errorMessage("invalid answer payload"))
				continue
			}
			answered, total, err := h.service.RecordAnswer(r.Context(), ownerID, folderID, payload.ConceptID, payload.Answer)
			if err != nil {
				emit(errorMessage(liveError(err)))
				continue
			}
			emit(outboundMessage[any]{Type: "progress", Payload: progressPayload{
				ConceptID: payload.ConceptID,
				Answered:  answered,
				Total:     total,
			}})
		case "submit":
			var payload submitPayload
			if len(inbound.Payload) > 0 {
				if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
					emit(errorMessage("invalid submit payload"))
					continue
				}
			}
			result, summary, err := h.service.FinishAttempt(r.Context(), ownerID, folderID, payload.TimeElapsed)
			if err != nil {
				emit(errorMessage(liveError(err)))
				continue
			}
			emit(outboundMessage[any]{Type: "result", Payload: submitResponse{
				Message: "Quiz result saved successfully",
				Result:  result,
				Summary: summary,
			}})
			finished = true
		default:
			emit(errorMessage("unsupported message type"))
		}
	}

	close(send)
	<-writerDone
	if !finished {
		return
	}
	if err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")); err != nil {
		log.Printf("ws close: %v", err)
	}
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}

func liveError(err error) string {
	_, msg := classify(err)
	if msg == "Internal server error" {
		log.Printf("live quiz: %v", err)
	}
	return msg
}
