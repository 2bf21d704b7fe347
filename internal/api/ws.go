package api

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/auxroom/auxroom/internal/server"
	"github.com/auxroom/auxroom/internal/types"
	"github.com/gorilla/websocket"
)

const (
	bearerPrefix        = "Bearer "
	tokenSubprotoPrefix = "token."
	authQueryParam      = "token"
)

// bearerCredential extracts the websocket credential from the request.
// Admissible locations, in precedence order: the "token" query
// parameter, an Authorization bearer header, a "token.<jwt>" websocket
// subprotocol. The offered subprotocol is returned separately so the
// upgrade response can echo it regardless of which location won.
func bearerCredential(r *http.Request) (cred string, echoProto string) {
	for _, p := range websocket.Subprotocols(r) {
		if strings.HasPrefix(p, tokenSubprotoPrefix) {
			echoProto = p
			break
		}
	}

	if t := r.URL.Query().Get(authQueryParam); t != "" {
		return t, echoProto
	}

	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, bearerPrefix) {
		return strings.TrimPrefix(h, bearerPrefix), echoProto
	}

	if echoProto != "" {
		return strings.TrimPrefix(echoProto, tokenSubprotoPrefix), echoProto
	}

	return "", echoProto
}

// serveWs upgrades the connection and authenticates it exactly once. A
// missing or invalid credential gets one best-effort
// authentication_error frame and the socket is closed; no registry
// entry is ever created for a rejected connection.
func (s *AuxRoomApp) serveWs(w http.ResponseWriter, r *http.Request) {
	cred, echoProto := bearerCredential(r)

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}

	var respHeader http.Header
	if echoProto != "" {
		respHeader = http.Header{"Sec-WebSocket-Protocol": []string{echoProto}}
	}

	conn, err := upgrader.Upgrade(w, r, respHeader)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	if cred == "" {
		s.rejectConn(conn, "missing credential")
		return
	}

	userId, err := s.extractUserIdFromToken(cred)
	if err != nil {
		s.log.Printf("websocket auth failed: %v", err)
		s.rejectConn(conn, "invalid credential")
		return
	}

	dbUser, err := s.db.GetAccountById(userId)
	if err != nil {
		s.log.Printf("websocket auth: unknown account %d: %v", userId, err)
		s.rejectConn(conn, "invalid credential")
		return
	}

	connId, err := s.generateShortId()
	if err != nil {
		s.log.Print("generateShortId:", err)
		s.rejectConn(conn, "internal error")
		return
	}

	client := server.NewClient(connId, types.User{
		Id:           dbUser.Id,
		Username:     dbUser.Username,
		EmailAddress: dbUser.EmailAddress,
		CreatedAt:    dbUser.CreatedAt,
		UpdatedAt:    dbUser.UpdatedAt,
	}, conn, s.ss, s.log)

	if err := s.ss.RegisterClient(client); err != nil {
		s.log.Printf("register connection %q: %v", connId, err)
		s.rejectConn(conn, err.Error())
		return
	}

	go client.Write()
	go client.Read()
}

// rejectConn writes one best-effort authentication_error frame and
// closes the socket.
func (s *AuxRoomApp) rejectConn(conn *websocket.Conn, reason string) {
	event := server.NewAuthenticationError(reason, s.clock.Now())
	if bytes, err := json.Marshal(event); err == nil {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		conn.WriteMessage(websocket.TextMessage, bytes)
	}

	conn.Close()
}
