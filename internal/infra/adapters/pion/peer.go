package pion

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"

	"github.com/qrave1/ChatRoulette/internal/application/constant"
	"github.com/qrave1/ChatRoulette/internal/client"
	"github.com/qrave1/ChatRoulette/internal/domain/events"
	"github.com/qrave1/ChatRoulette/internal/domain/negotiation"
)

const (
	opusPayloadType = 111
	opusFrame       = 20 * time.Millisecond
	opusFrameTicks  = 960
)

// opusSilence - кадр тишины Opus
var opusSilence = []byte{0xf8, 0xff, 0xfe}

type FactoryConfig struct {
	ICEServers []webrtc.ICEServer

	// Echo отправляет входящее медиа обратно вместо тишины
	Echo bool

	// IncludeLoopback добавляет loopback кандидаты, нужно для локальных прогонов
	IncludeLoopback bool

	Logger *slog.Logger
}

// PeerFactory создаёт PeerConnection для клиентского агента
type PeerFactory struct {
	api *webrtc.API
	cfg FactoryConfig
}

func NewPeerFactory(cfg FactoryConfig) *PeerFactory {
	se := webrtc.SettingEngine{
		LoggerFactory: SlogLoggerFactory{Logger: cfg.Logger},
	}
	se.SetIncludeLoopbackCandidate(cfg.IncludeLoopback)

	return &PeerFactory{
		api: webrtc.NewAPI(webrtc.WithSettingEngine(se)),
		cfg: cfg,
	}
}

type Peer struct {
	pc   *webrtc.PeerConnection
	opts client.PeerOptions
	echo bool

	tracks map[webrtc.RTPCodecType]*webrtc.TrackLocalStaticRTP

	closed    chan struct{}
	closeOnce sync.Once
	startOnce sync.Once
}

func (f *PeerFactory) NewPeer(opts client.PeerOptions) (client.Peer, error) {
	pc, err := f.api.NewPeerConnection(webrtc.Configuration{ICEServers: f.cfg.ICEServers})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	p := &Peer{
		pc:     pc,
		opts:   opts,
		echo:   f.cfg.Echo,
		tracks: make(map[webrtc.RTPCodecType]*webrtc.TrackLocalStaticRTP, 2),
		closed: make(chan struct{}),
	}

	if err = p.addMedia(); err != nil {
		_ = pc.Close()
		return nil, err
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil || opts.OnCandidate == nil {
			return
		}

		raw, err := json.Marshal(c.ToJSON())
		if err != nil {
			slog.Error("marshal ice candidate", slog.Any(constant.Error, err))
			return
		}

		opts.OnCandidate(events.SignalPayload{Candidate: raw})
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		switch state {
		case webrtc.PeerConnectionStateConnected:
			p.startOnce.Do(p.startSilence)
			if opts.OnConnected != nil {
				opts.OnConnected()
			}
		case webrtc.PeerConnectionStateFailed:
			if opts.OnLost != nil {
				opts.OnLost()
			}
		}
	})

	pc.OnTrack(p.readTrack)

	return p, nil
}

// addMedia добавляет свои треки и recvonly трансиверы под медиа собеседника.
// Отвечающий получает трансиверы из offer.
func (p *Peer) addMedia() error {
	kinds := []struct {
		kind   webrtc.RTPCodecType
		local  bool
		remote bool
		codec  webrtc.RTPCodecCapability
	}{
		{webrtc.RTPCodecTypeAudio, p.opts.Local.Audio, p.opts.Remote.Audio, webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2}},
		{webrtc.RTPCodecTypeVideo, p.opts.Local.Video, p.opts.Remote.Video, webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000}},
	}

	for _, k := range kinds {
		switch {
		case k.local:
			track, err := webrtc.NewTrackLocalStaticRTP(k.codec, k.kind.String(), "chatroulette")
			if err != nil {
				return fmt.Errorf("%w: create %s track: %w", client.ErrMediaUnavailable, k.kind, err)
			}

			sender, err := p.pc.AddTrack(track)
			if err != nil {
				return fmt.Errorf("%w: add %s track: %w", client.ErrMediaUnavailable, k.kind, err)
			}
			go drainRTCP(sender)

			p.tracks[k.kind] = track

		case k.remote && p.opts.Role == negotiation.RoleInitiator:
			_, err := p.pc.AddTransceiverFromKind(k.kind, webrtc.RTPTransceiverInit{
				Direction: webrtc.RTPTransceiverDirectionRecvonly,
			})
			if err != nil {
				return fmt.Errorf("add %s transceiver: %w", k.kind, err)
			}
		}
	}

	return nil
}

func drainRTCP(sender *webrtc.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}

func (p *Peer) readTrack(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
	kind := track.Kind()
	seen := false

	for {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Debug("rtp read", slog.String(constant.Type, kind.String()), slog.Any(constant.Error, err))
			}

			return
		}

		if !seen {
			seen = true
			if p.opts.OnMedia != nil {
				p.opts.OnMedia(kind.String())
			}
		}

		if !p.echo {
			continue
		}

		if local, ok := p.tracks[kind]; ok {
			if err = local.WriteRTP(pkt); err != nil && !errors.Is(err, io.ErrClosedPipe) {
				slog.Debug("rtp echo", slog.Any(constant.Error, err))
			}
		}
	}
}

// startSilence шлёт тишину в аудио трек, пока нет эха
func (p *Peer) startSilence() {
	track, ok := p.tracks[webrtc.RTPCodecTypeAudio]
	if !ok || p.echo {
		return
	}

	go func() {
		ticker := time.NewTicker(opusFrame)
		defer ticker.Stop()

		pkt := &rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				PayloadType:    opusPayloadType,
				SequenceNumber: uint16(rand.Uint32()),
				Timestamp:      rand.Uint32(),
			},
			Payload: opusSilence,
		}

		for {
			select {
			case <-p.closed:
				return
			case <-ticker.C:
				if err := track.WriteRTP(pkt); err != nil && !errors.Is(err, io.ErrClosedPipe) {
					slog.Debug("write silence", slog.Any(constant.Error, err))
				}

				pkt.SequenceNumber++
				pkt.Timestamp += opusFrameTicks
			}
		}
	}()
}

func (p *Peer) CreateOffer() (events.SignalPayload, error) {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return events.SignalPayload{}, fmt.Errorf("create offer: %w", err)
	}

	if err = p.pc.SetLocalDescription(offer); err != nil {
		return events.SignalPayload{}, fmt.Errorf("set local description: %w", err)
	}

	return events.SignalPayload{Type: string(events.SignalOffer), SDP: offer.SDP}, nil
}

func (p *Peer) ApplyOffer(sdp string) (events.SignalPayload, error) {
	err := p.pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp})
	if err != nil {
		return events.SignalPayload{}, fmt.Errorf("set remote description: %w", err)
	}

	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return events.SignalPayload{}, fmt.Errorf("create answer: %w", err)
	}

	if err = p.pc.SetLocalDescription(answer); err != nil {
		return events.SignalPayload{}, fmt.Errorf("set local description: %w", err)
	}

	return events.SignalPayload{Type: string(events.SignalAnswer), SDP: answer.SDP}, nil
}

func (p *Peer) ApplyAnswer(sdp string) error {
	err := p.pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: sdp})
	if err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}

	return nil
}

// AddCandidate принимает объект RTCIceCandidateInit или строку кандидата
func (p *Peer) AddCandidate(raw json.RawMessage) error {
	var init webrtc.ICECandidateInit

	if err := json.Unmarshal(raw, &init); err != nil {
		var line string
		if json.Unmarshal(raw, &line) != nil {
			return fmt.Errorf("decode ice candidate: %w", err)
		}
		init.Candidate = line
	}

	if init.Candidate == "" {
		// конец сбора кандидатов
		return nil
	}

	if err := p.pc.AddICECandidate(init); err != nil {
		return fmt.Errorf("add ice candidate: %w", err)
	}

	return nil
}

func (p *Peer) Close() error {
	var err error

	p.closeOnce.Do(func() {
		close(p.closed)
		err = p.pc.Close()
	})

	return err
}
