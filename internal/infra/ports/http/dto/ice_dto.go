package dto

import "github.com/pion/webrtc/v4"

type IceServersResponse struct {
	ICEServers []webrtc.ICEServer `json:"iceServers"`
}
