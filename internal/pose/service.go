package pose

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"gocv.io/x/gocv"
)

// Service implements Estimator using an external estimator process. Each
// frame is written to the process as a 4-byte big-endian length followed by
// JPEG bytes; the process answers with one JSON line per frame.
type Service struct {
	config Config
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	mu     sync.Mutex
	loaded bool
}

// NewService creates an out-of-process estimator. The process is started by Load.
func NewService(config Config) *Service {
	config.defaults()
	return &Service{config: config}
}

// Load starts the estimator process.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ensureStarted(); err != nil {
		return err
	}
	s.loaded = true
	return nil
}

// Estimate sends the frame to the process and decodes the reply.
func (s *Service) Estimate(ctx context.Context, frame *gocv.Mat) (*Pose, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return nil, ErrNotLoaded
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The process is restarted lazily if it exited since the last frame.
	if err := s.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	if err := writeFrame(s.stdin, buf.GetBytes()); err != nil {
		s.shutdown()
		return nil, err
	}

	line, err := s.stdout.ReadBytes('\n')
	if err != nil {
		s.shutdown()
		return nil, fmt.Errorf("read response: %w", err)
	}

	return decodeResponse(line, float64(s.config.ModelSize))
}

// Close shuts down the estimator process.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = false
	return s.shutdown()
}

func (s *Service) ensureStarted() error {
	if s.cmd != nil {
		return nil
	}

	script := s.config.ServiceScript
	if script == "" {
		script = findServiceScript()
	}
	if script == "" {
		return fmt.Errorf("pose_service.py not found")
	}

	cmd := exec.Command(s.config.Python, script)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start pose service: %w", err)
	}

	s.cmd = cmd
	s.stdin = stdin
	s.stdout = bufio.NewReader(stdout)
	return nil
}

func (s *Service) shutdown() error {
	if s.cmd == nil {
		return nil
	}

	if s.stdin != nil {
		s.stdin.Close()
	}

	err := s.cmd.Wait()
	s.cmd = nil
	s.stdin = nil
	s.stdout = nil

	return err
}

// writeFrame writes one length-prefixed frame.
func writeFrame(w io.Writer, data []byte) error {
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := w.Write(length); err != nil {
		return fmt.Errorf("write length: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	return nil
}

// jsonResponse is the reply line of the estimator process. An empty
// keypoint list means no pose was detected.
type jsonResponse struct {
	Size      float64        `json:"size"`
	Keypoints []jsonKeypoint `json:"keypoints"`
	Error     string         `json:"error,omitempty"`
}

type jsonKeypoint struct {
	Name  string  `json:"name"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Score float64 `json:"score"`
}

func decodeResponse(line []byte, modelSize float64) (*Pose, error) {
	var resp jsonResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("pose service: %s", resp.Error)
	}
	if len(resp.Keypoints) == 0 {
		return nil, nil
	}

	size := resp.Size
	if size <= 0 {
		size = modelSize
	}

	p := NewPose(size)
	for i, kp := range resp.Keypoints {
		l := Landmark(i)
		if kp.Name != "" {
			named, err := ParseLandmark(kp.Name)
			if err != nil {
				return nil, err
			}
			l = named
		}
		if int(l) >= NumLandmarks {
			continue
		}
		p.Set(l, kp.X, kp.Y, kp.Score)
	}
	return p, nil
}

func findServiceScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"scripts/pose_service.py",
		"../scripts/pose_service.py",
		filepath.Join(execDir, "scripts/pose_service.py"),
		filepath.Join(os.Getenv("HOME"), ".nritya/scripts/pose_service.py"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}
