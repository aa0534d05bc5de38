package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/rtp/codecs"
	"github.com/pion/webrtc/v3"
	"github.com/teslashibe/go-creatures/internal/log"
)

// ClientConfig configures the remote camera client.
type ClientConfig struct {
	Host           string        // Signalling host
	Port           int           // GStreamer webrtcsink signalling port
	ProducerName   string        // Producer meta name to pick; empty takes the first
	ConnectTimeout time.Duration // How long to wait for the video track
	MaxBuffer      int           // Bytes of H264 kept per keyframe interval
	Decoder        DecoderConfig
}

// DefaultClientConfig returns defaults for a GStreamer webrtcsink camera.
func DefaultClientConfig(host string) ClientConfig {
	return ClientConfig{
		Host:           host,
		Port:           8443,
		ConnectTimeout: 15 * time.Second,
		MaxBuffer:      4 << 20,
		Decoder:        DefaultDecoderConfig(),
	}
}

// Client receives a remote camera over WebRTC using GStreamer
// signalling and publishes decoded frames into a Slot. It implements
// Source.
type Client struct {
	cfg     ClientConfig
	slot    *Slot
	decoder *Decoder
	logger  *slog.Logger

	ws      *websocket.Conn
	pc      *webrtc.PeerConnection
	wsMutex sync.Mutex

	myPeerID   string
	producerID string
	sessionMu  sync.Mutex
	sessionID  string

	trackReady chan struct{}
	decoding   atomic.Bool
	closed     atomic.Bool
}

// NewClient creates a remote camera client.
func NewClient(cfg ClientConfig) *Client {
	return &Client{
		cfg:        cfg,
		slot:       NewSlot(),
		decoder:    NewDecoder(cfg.Decoder),
		logger:     log.Component("webrtc"),
		trackReady: make(chan struct{}, 1),
	}
}

// Connect establishes the WebRTC connection and waits for the video track.
func (c *Client) Connect(ctx context.Context) error {
	fmt.Println("  Connecting to signalling server...")

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	url := fmt.Sprintf("ws://%s:%d", c.cfg.Host, c.cfg.Port)

	var err error
	c.ws, _, err = dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("signalling connect failed: %w", err)
	}

	fmt.Println("  Waiting for welcome...")
	if err := c.waitForWelcome(); err != nil {
		return fmt.Errorf("welcome failed: %w", err)
	}

	fmt.Println("  Finding producer...")
	if err := c.findProducer(); err != nil {
		return fmt.Errorf("find producer failed: %w", err)
	}
	fmt.Printf("  Found producer: %s\n", short(c.producerID))

	if err := c.createPeerConnection(ctx); err != nil {
		return fmt.Errorf("peer connection failed: %w", err)
	}

	if err := c.writeJSON(map[string]string{
		"type":   "startSession",
		"peerId": c.producerID,
	}); err != nil {
		return fmt.Errorf("start session failed: %w", err)
	}

	go c.handleSignalling()

	fmt.Println("  Waiting for video track...")
	select {
	case <-c.trackReady:
		fmt.Println("  ✅ Video connected!")
		return nil
	case <-time.After(c.cfg.ConnectTimeout):
		return fmt.Errorf("timeout waiting for video")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (c *Client) writeJSON(v any) error {
	c.wsMutex.Lock()
	defer c.wsMutex.Unlock()
	return c.ws.WriteJSON(v)
}

func (c *Client) readMessage(timeout time.Duration) ([]byte, error) {
	c.ws.SetReadDeadline(time.Now().Add(timeout))
	defer c.ws.SetReadDeadline(time.Time{})
	_, msg, err := c.ws.ReadMessage()
	return msg, err
}

func (c *Client) waitForWelcome() error {
	msg, err := c.readMessage(10 * time.Second)
	if err != nil {
		return err
	}

	var welcome struct {
		Type   string `json:"type"`
		PeerID string `json:"peerId"`
	}
	if err := json.Unmarshal(msg, &welcome); err != nil {
		return err
	}
	if welcome.Type != "welcome" {
		return fmt.Errorf("expected welcome, got %s", welcome.Type)
	}
	c.myPeerID = welcome.PeerID
	return nil
}

func (c *Client) findProducer() error {
	if err := c.writeJSON(map[string]string{"type": "list"}); err != nil {
		return err
	}

	msg, err := c.readMessage(5 * time.Second)
	if err != nil {
		return err
	}

	var listResp struct {
		Type      string `json:"type"`
		Producers []struct {
			ID   string            `json:"id"`
			Meta map[string]string `json:"meta"`
		} `json:"producers"`
	}
	if err := json.Unmarshal(msg, &listResp); err != nil {
		return err
	}

	for _, p := range listResp.Producers {
		if c.cfg.ProducerName == "" || p.Meta["name"] == c.cfg.ProducerName {
			c.producerID = p.ID
			return nil
		}
	}
	return fmt.Errorf("producer %q not found in %d producers", c.cfg.ProducerName, len(listResp.Producers))
}

func (c *Client) createPeerConnection(ctx context.Context) error {
	var err error
	c.pc, err = webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return err
	}

	if _, err = c.pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	}); err != nil {
		return err
	}

	c.pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		c.logger.Info("track received", "kind", track.Kind(), "codec", track.Codec().MimeType)
		if track.Kind() == webrtc.RTPCodecTypeVideo {
			go c.handleVideoTrack(context.WithoutCancel(ctx), track)
		}
	})

	c.pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate != nil {
			c.sendICECandidate(candidate)
		}
	})

	c.pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		c.logger.Info("connection state", "state", state)
	})

	return nil
}

// peerMessage is a GStreamer signalling "peer" message.
type peerMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	SDP       *struct {
		Type string `json:"type"`
		SDP  string `json:"sdp"`
	} `json:"sdp"`
	ICE *struct {
		Candidate     string  `json:"candidate"`
		SDPMid        *string `json:"sdpMid"`
		SDPMLineIndex *uint16 `json:"sdpMLineIndex"`
	} `json:"ice"`
}

func (c *Client) handleSignalling() {
	for !c.closed.Load() {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			if !c.closed.Load() {
				c.logger.Warn("signalling error", "error", err)
			}
			return
		}

		var pm peerMessage
		if err := json.Unmarshal(msg, &pm); err != nil {
			c.logger.Warn("bad signalling message", "error", err)
			continue
		}

		switch pm.Type {
		case "sessionStarted":
			c.sessionMu.Lock()
			c.sessionID = pm.SessionID
			c.sessionMu.Unlock()

		case "peer":
			c.handlePeerMessage(pm)

		case "endSession":
			c.logger.Info("session ended by producer")
			return
		}
	}
}

func (c *Client) handlePeerMessage(pm peerMessage) {
	if pm.SDP != nil && pm.SDP.Type == "offer" {
		offer := webrtc.SessionDescription{
			Type: webrtc.SDPTypeOffer,
			SDP:  pm.SDP.SDP,
		}
		if err := c.pc.SetRemoteDescription(offer); err != nil {
			c.logger.Warn("set remote description", "error", err)
			return
		}

		answer, err := c.pc.CreateAnswer(nil)
		if err != nil {
			c.logger.Warn("create answer", "error", err)
			return
		}
		if err := c.pc.SetLocalDescription(answer); err != nil {
			c.logger.Warn("set local description", "error", err)
			return
		}
		c.sendSDP(answer)
	}

	if pm.ICE != nil {
		if err := c.pc.AddICECandidate(webrtc.ICECandidateInit{
			Candidate:     pm.ICE.Candidate,
			SDPMid:        pm.ICE.SDPMid,
			SDPMLineIndex: pm.ICE.SDPMLineIndex,
		}); err != nil {
			c.logger.Warn("add ICE candidate", "error", err)
		}
	}
}

func (c *Client) session() string {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()
	return c.sessionID
}

func (c *Client) sendSDP(sdp webrtc.SessionDescription) {
	msg := map[string]interface{}{
		"type":      "peer",
		"sessionId": c.session(),
		"sdp": map[string]string{
			"type": sdp.Type.String(),
			"sdp":  sdp.SDP,
		},
	}
	if err := c.writeJSON(msg); err != nil {
		c.logger.Warn("send SDP", "error", err)
	}
}

func (c *Client) sendICECandidate(candidate *webrtc.ICECandidate) {
	sessionID := c.session()
	if sessionID == "" {
		return
	}

	ice := candidate.ToJSON()
	msg := map[string]interface{}{
		"type":      "peer",
		"sessionId": sessionID,
		"ice": map[string]interface{}{
			"candidate":     ice.Candidate,
			"sdpMid":        ice.SDPMid,
			"sdpMLineIndex": ice.SDPMLineIndex,
		},
	}
	if err := c.writeJSON(msg); err != nil {
		c.logger.Warn("send ICE candidate", "error", err)
	}
}

func (c *Client) handleVideoTrack(ctx context.Context, track *webrtc.TrackRemote) {
	select {
	case c.trackReady <- struct{}{}:
	default:
	}

	asm := newH264Assembler(c.cfg.MaxBuffer)
	for !c.closed.Load() {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			return
		}
		if err := asm.push(pkt.Payload); err != nil {
			c.logger.Debug("depacketize", "error", err)
			continue
		}

		// Decode at access-unit boundaries, one decode at a time.
		if pkt.Marker && asm.synced && c.decoder.Due() && c.decoding.CompareAndSwap(false, true) {
			go c.decode(ctx, asm.snapshot())
		}
	}
}

func (c *Client) decode(ctx context.Context, h264 []byte) {
	defer c.decoding.Store(false)

	frame, err := c.decoder.Decode(ctx, h264)
	if err != nil {
		c.logger.Warn("decode failed", "error", err)
		return
	}
	if frame == nil {
		return
	}
	w, h, err := JPEGDims(frame)
	if err != nil {
		c.logger.Warn("decoded frame unreadable", "error", err)
		return
	}
	c.slot.Publish(frame, w, h)
}

// Latest implements Source.
func (c *Client) Latest() (Frame, bool) {
	return c.slot.Latest()
}

// Stats returns the frame mailbox counters.
func (c *Client) Stats() SlotStats {
	return c.slot.Stats()
}

// Close closes the WebRTC connection.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	var err error
	if c.pc != nil {
		err = c.pc.Close()
	}
	if c.ws != nil {
		c.ws.Close()
	}
	return err
}

// h264Assembler depacketizes RTP payloads into an Annex-B stream that
// always starts at the most recent sequence parameter set, so the
// buffer is decodable on its own.
type h264Assembler struct {
	depack codecs.H264Packet
	buf    bytes.Buffer
	max    int
	synced bool
}

func newH264Assembler(max int) *h264Assembler {
	return &h264Assembler{max: max}
}

// H264 NAL unit types used for resynchronisation.
const (
	nalSPS   = 7
	nalSTAPA = 24
)

// startsWithSPS reports whether an RTP payload carries an SPS, either
// alone or first in a STAP-A aggregate.
func startsWithSPS(payload []byte) bool {
	if len(payload) == 0 {
		return false
	}
	switch payload[0] & 0x1F {
	case nalSPS:
		return true
	case nalSTAPA:
		return len(payload) > 3 && payload[3]&0x1F == nalSPS
	}
	return false
}

func (a *h264Assembler) push(payload []byte) error {
	if startsWithSPS(payload) {
		a.buf.Reset()
		a.synced = true
	}

	nal, err := a.depack.Unmarshal(payload)
	if err != nil {
		return err
	}
	if !a.synced {
		return nil
	}

	a.buf.Write(nal)
	if a.max > 0 && a.buf.Len() > a.max {
		a.buf.Reset()
		a.synced = false
	}
	return nil
}

func (a *h264Assembler) snapshot() []byte {
	return append([]byte(nil), a.buf.Bytes()...)
}
