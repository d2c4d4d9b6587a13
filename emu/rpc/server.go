package rpc

import (
	"errors"
	"net"
	"net/http"
	"net/rpc"

	"famitone/emu"
	"famitone/hw/hwdefs"
	"famitone/tracker/ft"
)

// Player is the part of the engine controlled remotely.
type Player interface {
	Play(track, frame, row int) error
	Stop()
	Seek(frame, row int)
	PreviewNote(ch hwdefs.ChannelID, nd ft.NoteData)
	Status() emu.Status
}

var _ Player = (*emu.Engine)(nil)

type playerProxy struct {
	p Player
}

func (pp *playerProxy) Play(args PlayArgs, _ *struct{}) error {
	return pp.p.Play(args.Track, args.Frame, args.Row)
}

func (pp *playerProxy) Stop(_ struct{}, _ *struct{}) error    { pp.p.Stop(); return nil }
func (pp *playerProxy) Seek(args SeekArgs, _ *struct{}) error { pp.p.Seek(args.Frame, args.Row); return nil }

func (pp *playerProxy) Preview(args PreviewArgs, _ *struct{}) error {
	if args.Channel >= hwdefs.NumChannels {
		return errors.New("invalid channel")
	}
	nd, err := ft.ParseNoteData(args.Note, args.Channel.Chip())
	if err != nil {
		return err
	}
	pp.p.PreviewNote(args.Channel, nd)
	return nil
}

func (pp *playerProxy) Status(_ struct{}, reply *emu.Status) error {
	*reply = pp.p.Status()
	return nil
}

// Server serves a player over HTTP.
type Server struct {
	l net.Listener
}

// NewServer starts serving p at addr.
func NewServer(addr string, p Player) (*Server, error) {
	srv := rpc.NewServer()
	if err := srv.RegisterName(serviceName, &playerProxy{p: p}); err != nil {
		return nil, err
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	modRPC.InfoZ("rpc server listening").String("addr", l.Addr().String()).End()
	go http.Serve(l, srv)
	return &Server{l: l}, nil
}

// Addr returns the address the server listens on.
func (s *Server) Addr() string { return s.l.Addr().String() }

func (s *Server) Close() error {
	modRPC.DebugZ("closing rpc server").End()
	return s.l.Close()
}
