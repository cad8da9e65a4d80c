// Package forward publishes received packets to NATS as JSON records.
package forward

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/NV4RE/sx128x"
)

// Record is the message published for every received packet.
type Record struct {
	ID          uuid.UUID `json:"id"`
	Device      string    `json:"device"`
	ReceivedAt  time.Time `json:"received_at"`
	PacketType  string    `json:"packet_type"`
	Frequency   uint32    `json:"frequency"`
	Payload     []byte    `json:"payload"`
	Length      int       `json:"length"`
	RSSI        float64   `json:"rssi"`
	SNR         *float64  `json:"snr,omitempty"`
	CRCOK       bool      `json:"crc_ok"`
	Errors      uint8     `json:"errors,omitempty"`
	SyncAddress uint8     `json:"sync_address,omitempty"`
	Distance    *float64  `json:"distance,omitempty"`
}

func NewRecord(device string, frequency uint32, p *sx128x.Packet, now time.Time) Record {
	r := Record{
		ID:          uuid.New(),
		Device:      device,
		ReceivedAt:  now.UTC(),
		PacketType:  p.Info.PacketType.String(),
		Frequency:   frequency,
		Payload:     p.Payload,
		Length:      p.Info.Length,
		RSSI:        p.Info.RSSI,
		CRCOK:       p.Info.CRCOK,
		Errors:      uint8(p.Info.Errors),
		SyncAddress: p.Info.SyncAddress,
	}
	if p.Info.HasSNR {
		snr := p.Info.SNR
		r.SNR = &snr
	}
	if p.Info.Ranging != nil {
		dist := p.Info.Ranging.Distance
		r.Distance = &dist
	}
	return r
}

// Publisher is the part of *nats.Conn the forwarder uses.
type Publisher interface {
	PublishMsg(m *nats.Msg) error
}

type Forwarder struct {
	pub     Publisher
	subject string
	device  string
	now     func() time.Time
}

// New returns a forwarder publishing to "<prefix>.<device>.rx".
func New(pub Publisher, prefix, device string) *Forwarder {
	return &Forwarder{
		pub:     pub,
		subject: fmt.Sprintf("%s.%s.rx", prefix, device),
		device:  device,
		now:     time.Now,
	}
}

func (f *Forwarder) Subject() string {
	return f.subject
}

// Forward publishes p. The record id doubles as the message id header so a
// JetStream stream drops redeliveries.
func (f *Forwarder) Forward(frequency uint32, p *sx128x.Packet) (Record, error) {
	r := NewRecord(f.device, frequency, p, f.now())
	data, err := json.Marshal(r)
	if err != nil {
		return r, fmt.Errorf("marshal record: %w", err)
	}

	msg := nats.NewMsg(f.subject)
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, r.ID.String())
	msg.Header.Set("Packet-Type", r.PacketType)

	if err := f.pub.PublishMsg(msg); err != nil {
		return r, fmt.Errorf("publish %s: %w", f.subject, err)
	}

	log.Debug().
		Str("subject", f.subject).
		Str("id", r.ID.String()).
		Int("length", r.Length).
		Msg("Forwarded packet")
	return r, nil
}

// Options are the connection settings of Connect.
type Options struct {
	Name              string
	Username          string
	Password          string
	MaxReconnects     int
	ReconnectInterval time.Duration
}

func Connect(url string, o Options) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name(o.Name),
		nats.ReconnectWait(o.ReconnectInterval),
		nats.MaxReconnects(o.MaxReconnects),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}
	if o.Username != "" {
		opts = append(opts, nats.UserInfo(o.Username, o.Password))
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}
