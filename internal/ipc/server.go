package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"capdeck/internal/daemon"
	"capdeck/internal/logging"
	"capdeck/internal/messages"
	"capdeck/internal/services"
)

// ServiceName is the RPC receiver name.
const ServiceName = "Capdeck"

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logging.NewComponentLogger(logger, "ipc"), ctx: ctx}
	if err := rpcServer.RegisterName(ServiceName, srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	st := s.daemon.Status()
	*resp = StatusResponse{
		Running:     st.Running,
		PID:         st.PID,
		Phase:       st.Phase.String(),
		Enabled:     st.Enabled,
		Selection:   st.Selection,
		FramesShown: st.FramesShown,
		LastFrame:   st.LastFrame,
		Backend:     st.Backend,
		LockPath:    st.LockPath,
		CatalogPath: st.CatalogPath,
		Notices:     st.Notices,
		Problems:    st.RecentProblems,
		Session: SessionStatus{
			Active:        st.Session.Active,
			ID:            st.Session.ID,
			Device:        st.Session.Device,
			VideoSize:     st.Session.VideoSize,
			PixelFormat:   st.Session.PixelFormat,
			Relay:         st.Session.Relay,
			Frames:        st.Session.Frames,
			Recording:     st.Session.Recording,
			RecordingPath: st.Session.RecordingPath,
			UptimeSeconds: st.Session.Uptime.Seconds(),
		},
		UptimeSeconds: st.Uptime.Seconds(),
	}
	return nil
}

func (s *service) SetEnabled(req SetEnabledRequest, resp *ActionResponse) error {
	s.act(resp, func() bool { return s.daemon.Controller().SetEnabled(req.Enabled) })
	s.logger.Info("video toggled via IPC",
		logging.String(logging.FieldEventType, "ipc_set_enabled"),
		logging.Bool("enabled", req.Enabled),
		logging.Bool("accepted", resp.Accepted),
	)
	return nil
}

func (s *service) Preview(req PreviewRequest, resp *ActionResponse) error {
	c := s.daemon.Controller()
	var fn func()
	switch req.Action {
	case PreviewStart:
		fn = c.StartPreview
	case PreviewPause:
		fn = c.PausePreview
	case PreviewResume:
		fn = c.ResumePreview
	default:
		return services.Wrap(services.ErrValidation, "ipc", "preview", fmt.Sprintf("unknown preview action %q", req.Action), nil)
	}
	s.act(resp, func() bool { fn(); return true })
	return nil
}

func (s *service) Record(req RecordRequest, resp *ActionResponse) error {
	c := s.daemon.Controller()
	var fn func()
	switch req.Action {
	case RecordToggle:
		fn = c.StartOrStopRecording
	case RecordPause:
		fn = c.PauseOrResumeRecording
	default:
		return services.Wrap(services.ErrValidation, "ipc", "record", fmt.Sprintf("unknown record action %q", req.Action), nil)
	}
	s.act(resp, func() bool { fn(); return true })
	return nil
}

func (s *service) Photo(_ PhotoRequest, resp *ActionResponse) error {
	s.act(resp, func() bool { s.daemon.Controller().TakePhoto(); return true })
	return nil
}

func (s *service) Settings(_ SettingsRequest, resp *SettingsResponse) error {
	shown, ok := s.daemon.ShowSettings()
	resp.Shown = ok
	resp.Phase = s.daemon.Controller().Phase().String()
	if ok {
		resp.Settings = CaptureSettings{
			Device:        shown.Device,
			Width:         shown.Width,
			Height:        shown.Height,
			FrameRate:     shown.FrameRate,
			PixelFormat:   shown.PixelFormat,
			Preset:        shown.Preset,
			CRF:           shown.CRF,
			PinNumber:     shown.PinNumber,
			ExecutableDir: shown.ExecutableDir,
		}
	}
	return nil
}

func (s *service) Select(req SelectRequest, resp *SelectResponse) error {
	lib := s.daemon.Library()
	if req.ID == "" {
		lib.Deselect()
	} else if err := lib.Select(req.ID); err != nil {
		return err
	}
	resp.Selection, _ = lib.Selected()
	return nil
}

func (s *service) MediaList(req MediaListRequest, resp *MediaListResponse) error {
	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()
	store := s.daemon.Catalog()
	if req.Prune {
		pruned, err := store.PruneMissing(ctx)
		if err != nil {
			return err
		}
		resp.Pruned = pruned
	}
	items, err := store.List(ctx, req.Target)
	if err != nil {
		return err
	}
	resp.Items = make([]MediaItem, 0, len(items))
	for _, item := range items {
		resp.Items = append(resp.Items, MediaItem{
			ID:          item.ID,
			Kind:        string(item.Kind),
			Target:      item.Target,
			Path:        item.Path,
			Alternative: item.Alternative,
			CreatedAt:   item.CreatedAt,
		})
	}
	targets, err := store.Targets(ctx)
	if err != nil {
		return err
	}
	for _, t := range targets {
		resp.Targets = append(resp.Targets, TargetSummary(t))
	}
	return nil
}

func (s *service) Devices(_ DevicesRequest, resp *DevicesResponse) error {
	devices, err := s.daemon.Devices(s.ctx)
	if err != nil {
		return err
	}
	resp.Backend = s.daemon.Status().Backend
	for _, d := range devices {
		resp.Devices = append(resp.Devices, Device(d))
	}
	return nil
}

// act runs fn and fills resp with its result, the phase reached and the
// notices shown meanwhile.
func (s *service) act(resp *ActionResponse, fn func() bool) {
	courier := s.daemon.Courier()
	since := time.Now()
	resp.Accepted = fn()
	resp.Phase = s.daemon.Controller().Phase().String()
	resp.Notices = noticesSince(courier, since)
}

func noticesSince(courier *messages.LogCourier, since time.Time) []Notice {
	var out []Notice
	for _, n := range courier.Recent() {
		if !n.Time.Before(since) {
			out = append(out, n)
		}
	}
	return out
}
