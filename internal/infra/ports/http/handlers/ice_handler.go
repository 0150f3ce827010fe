package handlers

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pion/webrtc/v4"

	"github.com/qrave1/ChatRoulette/internal/application/config"
	"github.com/qrave1/ChatRoulette/internal/infra/ports/http/dto"
)

const turnCredentialTTL = time.Hour

type IceHandler struct {
	cfg *config.Config

	now func() time.Time
}

func NewIceHandler(cfg *config.Config) *IceHandler {
	return &IceHandler{cfg: cfg, now: time.Now}
}

// IceServers отдает STUN и TURN. С COTURN_SECRET креды TURN временные,
// без него - статические из конфига.
func (h *IceHandler) IceServers(c echo.Context) error {
	if h.cfg.CoturnServer.Host == "" || h.cfg.CoturnServer.Secret == "" {
		return c.JSON(http.StatusOK, dto.IceServersResponse{ICEServers: h.cfg.ICEServers()})
	}

	servers := make([]webrtc.ICEServer, 0, 2)

	if len(h.cfg.STUNURLs) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: h.cfg.STUNURLs})
	}

	servers = append(servers, h.turnServer())

	return c.JSON(http.StatusOK, dto.IceServersResponse{ICEServers: servers})
}

// turnServer - креды по схеме coturn REST API (static-auth-secret)
func (h *IceHandler) turnServer() webrtc.ICEServer {
	expiration := h.now().Add(turnCredentialTTL).Unix()
	username := fmt.Sprintf("%d", expiration)

	mac := hmac.New(sha1.New, []byte(h.cfg.CoturnServer.Secret))
	mac.Write([]byte(username))
	password := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return webrtc.ICEServer{
		URLs: []string{
			h.cfg.TurnUDPServer.URLs[0],
			h.cfg.TurnTCPServer.URLs[0],
		},
		Username:   username,
		Credential: password,
	}
}
