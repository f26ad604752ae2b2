// Package testdata provides scripted pose sequences and blank frames for
// pipeline tests.
package testdata

import (
	"embed"
	"encoding/json"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/ayusman/nritya/internal/pose"
)

//go:embed poses/*.json
var posesFS embed.FS

// sequence is the on-disk fixture format. Each frame maps a landmark name
// to [x, y, score] in a square model space of the given size.
type sequence struct {
	Size   float64                 `json:"size"`
	Frames []map[string][3]float64 `json:"frames"`
}

// LoadPoses loads a pose sequence by name, e.g. "click_cycle".
func LoadPoses(name string) ([]*pose.Pose, error) {
	data, err := posesFS.ReadFile("poses/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("load poses %s: %w", name, err)
	}

	var seq sequence
	if err := json.Unmarshal(data, &seq); err != nil {
		return nil, fmt.Errorf("decode poses %s: %w", name, err)
	}
	if seq.Size <= 0 {
		seq.Size = pose.DefaultModelSize
	}

	poses := make([]*pose.Pose, 0, len(seq.Frames))
	for i, frame := range seq.Frames {
		p := pose.NewPose(seq.Size)
		for n, v := range frame {
			l, err := pose.ParseLandmark(n)
			if err != nil {
				return nil, fmt.Errorf("poses %s frame %d: %w", name, i, err)
			}
			p.Set(l, v[0], v[1], v[2])
		}
		poses = append(poses, p)
	}
	return poses, nil
}

// LoadSteps loads a pose sequence as scripted estimator steps.
func LoadSteps(name string) ([]pose.Step, error) {
	poses, err := LoadPoses(name)
	if err != nil {
		return nil, err
	}
	return pose.Poses(poses...), nil
}

// BlankFrame returns a black frame of the given size. The caller must
// close it.
func BlankFrame(width, height int) *gocv.Mat {
	m := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	return &m
}
