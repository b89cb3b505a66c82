package app

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/reachy_twin/internal/config"
	"github.com/relabs-tech/reachy_twin/internal/feed"
	"github.com/relabs-tech/reachy_twin/internal/joints"
	"github.com/relabs-tech/reachy_twin/internal/link"
	"github.com/relabs-tech/reachy_twin/internal/render"
)

type fakePanel struct {
	draws int
	last  image.Image
}

func (p *fakePanel) String() string          { return "fake" }
func (p *fakePanel) Halt() error             { return nil }
func (p *fakePanel) ColorModel() color.Model { return image1bit.BitModel }
func (p *fakePanel) Bounds() image.Rectangle { return image.Rect(0, 0, panelWidth, panelHeight) }
func (p *fakePanel) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	p.draws++
	p.last = src
	return nil
}

func litPixels(img *image1bit.VerticalLSB) int {
	n := 0
	for _, b := range img.Pix {
		for ; b != 0; b &= b - 1 {
			n++
		}
	}
	return n
}

func TestPanelLinesWaiting(t *testing.T) {
	for _, content := range []string{config.DisplayStatus, config.DisplayHead, config.DisplayAntennas} {
		lines := panelLines(content, displaySnapshot{})
		assert.Contains(t, lines, "Waiting...", content)
	}
	assert.Equal(t, "Offline", panelLines(config.DisplayStatus, displaySnapshot{})[1])
}

func TestPanelLines(t *testing.T) {
	frame := render.Frame{
		Version: 42,
		Joints: joints.Values{
			joints.YawBody.String():      0.5,
			joints.LeftAntenna.String():  -0.25,
			joints.RightAntenna.String(): 0.25,
		},
		HeadPose: feed.PoseRecordToMatrix(feed.PoseRecord{Z: 0.01, Yaw: 0.5}),
	}
	snap := displaySnapshot{
		frame:      frame,
		haveFrame:  true,
		status:     link.StatusFor(link.Connected),
		haveStatus: true,
	}

	assert.Equal(t, []string{"Reachy Mini", "Connected", "v42", "Yaw:   28.6"}, panelLines(config.DisplayStatus, snap))
	assert.Equal(t, []string{"Antennas", "L:  -14.3", "R:   14.3"}, panelLines(config.DisplayAntennas, snap))

	head := panelLines(config.DisplayHead, snap)
	require.Len(t, head, 4)
	assert.Equal(t, "R:  0.0 P:  0.0", head[0])
	assert.Equal(t, "Y: 28.6", head[1])
	assert.Equal(t, "Z: 10.0 mm", head[3])

	snap.frame.HeadPose = nil
	assert.Contains(t, panelLines(config.DisplayHead, snap), "No pose")
}

func TestRenderPanel(t *testing.T) {
	blank := renderPanel(nil)
	assert.Equal(t, 0, litPixels(blank))
	assert.Equal(t, image.Rect(0, 0, panelWidth, panelHeight), blank.Bounds())

	text := renderPanel([]string{"Reachy Mini", "Connected"})
	assert.Positive(t, litPixels(text))

	// lines past the fourth do not fit and are dropped
	four := renderPanel([]string{"a", "b", "c", "d"})
	five := renderPanel([]string{"a", "b", "c", "d", "e"})
	assert.Equal(t, four.Pix, five.Pix)
}

func TestDrawPanel(t *testing.T) {
	dev := &fakePanel{}
	require.NoError(t, drawPanel(dev, []string{"hello"}))
	require.NoError(t, showSplash(dev))
	assert.Equal(t, 2, dev.draws)
	assert.Equal(t, dev.Bounds(), dev.last.Bounds())
}

func TestDisplayHandler(t *testing.T) {
	data := &displayData{}
	core, logs := observer.New(zapcore.WarnLevel)
	handle := displayHandler(data, "reachy/joints", "reachy/status", zap.New(core).Sugar())

	handle(nil, &fakeMessage{topic: "reachy/status", payload: []byte(`{"state":"connected","color":"#4caf50","label":"Connected"}`)})
	handle(nil, &fakeMessage{topic: "reachy/joints", payload: []byte(`{"version":3,"joints":{"yaw_body":0.1}}`)})
	handle(nil, &fakeMessage{topic: "reachy/joints", payload: []byte(`garbage`)})

	snap := data.snapshot()
	assert.True(t, snap.haveStatus)
	assert.Equal(t, link.Connected, snap.status.State)
	assert.True(t, snap.haveFrame)
	assert.Equal(t, uint64(3), snap.frame.Version)
	assert.InDelta(t, 0.1, snap.frame.Joints["yaw_body"], 1e-12)
	assert.Equal(t, 1, logs.FilterMessageSnippet("frame unmarshal error").Len())
}
