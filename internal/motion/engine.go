// Package motion plays discrete skeletal gesture clips by driving bone
// rotations through parametric easing curves. It never touches morph
// channels, so it composes freely with the face engines.
package motion

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/normanking/visage/internal/actuator"
	"github.com/normanking/visage/internal/model"
	"github.com/rs/zerolog"
)

// GestureType names a gesture clip in the catalog.
type GestureType string

const (
	GestureNod   GestureType = "nod"
	GestureShake GestureType = "shake"
	GestureWave  GestureType = "wave"
	GestureThink GestureType = "think"
	GesturePoint GestureType = "point"
	GestureIdle  GestureType = "idle"
	GestureShrug GestureType = "shrug"
)

// BoneRole is a canonical rig role resolved through the alias table.
type BoneRole int

const (
	RoleHead BoneRole = iota
	RoleLeftArm
	RoleRightArm
)

// boneAliases is the explicit role-to-pattern table. Matching is
// case-insensitive substring match; the first bone matching any pattern
// wins.
var boneAliases = map[BoneRole][]string{
	RoleHead:     {"head", "neck"},
	RoleLeftArm:  {"leftarm", "left_arm", "arm_l", "l_arm", "leftupperarm", "upperarm_l"},
	RoleRightArm: {"rightarm", "right_arm", "arm_r", "r_arm", "rightupperarm", "upperarm_r"},
}

// frameInterval is the assumed host animation-frame period.
const frameInterval = 16 * time.Millisecond

// repeatGap is the pause between repeat cycles.
const repeatGap = 100 * time.Millisecond

// gesture is one active clip instance. All state is local to the
// invocation; the only thing that outlives it is the bone's rotation,
// restored when the clip finishes.
type gesture struct {
	id        string
	gtype     GestureType
	role      BoneRole
	bone      *model.Bone
	original  mgl32.Vec3
	target    mgl32.Vec3 // delta from original, single-shot gestures
	amplitude float32    // oscillating gestures
	cycles    float32    // sine cycles across the clip, oscillating gestures

	frame       int
	cycleFrames int
	gapFrames   int
	repeats     int // remaining cycles; -1 loops forever
	inGap       bool
}

// Engine resolves bones on the bound model and advances active gestures
// one frame per Update call.
type Engine struct {
	mu     sync.Mutex
	active map[BoneRole]*gesture

	binder *actuator.Binder
	logger zerolog.Logger
}

// NewEngine creates a motion engine bound to the binder's model graph.
func NewEngine(binder *actuator.Binder, logger zerolog.Logger) *Engine {
	return &Engine{
		active: make(map[BoneRole]*gesture),
		binder: binder,
		logger: logger.With().Str("component", "motion").Logger(),
	}
}

// FindBone returns the first bone whose name contains the pattern,
// case-insensitively, or nil.
func (e *Engine) FindBone(pattern string) *model.Bone {
	graph := e.binder.Graph()
	if graph == nil {
		return nil
	}
	pattern = strings.ToLower(pattern)
	for _, b := range graph.Bones {
		if strings.Contains(strings.ToLower(b.Name), pattern) {
			return b
		}
	}
	return nil
}

// AvailableBones lists the bone names the loaded model exposes.
func (e *Engine) AvailableBones() []string {
	graph := e.binder.Graph()
	if graph == nil {
		return nil
	}
	names := make([]string, 0, len(graph.Bones))
	for _, b := range graph.Bones {
		names = append(names, b.Name)
	}
	return names
}

func (e *Engine) resolveRole(role BoneRole) *model.Bone {
	for _, pattern := range boneAliases[role] {
		if b := e.FindBone(pattern); b != nil {
			return b
		}
	}
	return nil
}

// PlayMotion starts a gesture. Intensity scales the angle and inversely
// scales the duration, so stronger gestures are both larger and faster.
// A gesture already running on the same bone role is superseded: its
// bone snaps back to the pre-gesture rotation before the new clip takes
// the role. Missing bones make the call a silent no-op.
func (e *Engine) PlayMotion(gtype GestureType, intensity float32) {
	if intensity <= 0 {
		intensity = 0.01
	}
	if intensity > 1 {
		intensity = 1
	}

	g := e.buildGesture(gtype, intensity)
	if g == nil {
		e.logger.Debug().Str("gesture", string(gtype)).Msg("No bone resolved for gesture")
		return
	}

	e.mu.Lock()
	if prev, ok := e.active[g.role]; ok {
		prev.bone.Rotation = prev.original
		// The new clip's rest pose is the restored one, not whatever
		// mid-gesture rotation buildGesture saw.
		g.original = g.bone.Rotation
		if g.gtype == GesturePoint {
			g.target = g.original.Mul(-1)
		}
	}
	e.active[g.role] = g
	e.mu.Unlock()

	e.logger.Debug().
		Str("gesture", string(gtype)).
		Str("gesture_id", g.id).
		Str("bone", g.bone.Name).
		Float32("intensity", intensity).
		Msg("Gesture started")
}

func (e *Engine) buildGesture(gtype GestureType, i float32) *gesture {
	frames := func(base time.Duration) int {
		n := int((time.Duration(float32(base) / i)) / frameInterval)
		if n < 1 {
			n = 1
		}
		return n
	}
	gapFrames := int(repeatGap / frameInterval)

	switch gtype {
	case GestureNod:
		bone := e.resolveRole(RoleHead)
		if bone == nil {
			return nil
		}
		return &gesture{
			id: uuid.NewString(), gtype: gtype, role: RoleHead, bone: bone,
			original:    bone.Rotation,
			target:      mgl32.Vec3{float32(math.Pi) / 8 * i, 0, 0},
			cycleFrames: frames(600 * time.Millisecond),
			gapFrames:   gapFrames,
			repeats:     2,
		}

	case GestureShake:
		bone := e.resolveRole(RoleHead)
		if bone == nil {
			return nil
		}
		return &gesture{
			id: uuid.NewString(), gtype: gtype, role: RoleHead, bone: bone,
			original:    bone.Rotation,
			target:      mgl32.Vec3{0, float32(math.Pi) / 6 * i, 0},
			cycleFrames: frames(400 * time.Millisecond),
			gapFrames:   gapFrames,
			repeats:     3,
		}

	case GestureWave:
		bone := e.resolveRole(RoleRightArm)
		if bone == nil {
			return nil
		}
		return &gesture{
			id: uuid.NewString(), gtype: gtype, role: RoleRightArm, bone: bone,
			original:    bone.Rotation,
			amplitude:   float32(math.Pi) / 4 * i,
			cycles:      2,
			cycleFrames: frames(1000 * time.Millisecond),
			repeats:     1,
		}

	case GestureThink:
		bone := e.resolveRole(RoleRightArm)
		if bone == nil {
			return nil
		}
		return &gesture{
			id: uuid.NewString(), gtype: gtype, role: RoleRightArm, bone: bone,
			original:    bone.Rotation,
			target:      mgl32.Vec3{float32(math.Pi) / 3 * i, -float32(math.Pi) / 6 * i, 0},
			cycleFrames: frames(800 * time.Millisecond),
			repeats:     1,
		}

	case GesturePoint:
		bone := e.resolveRole(RoleRightArm)
		if bone == nil {
			return nil
		}
		// Forward pose: ease the accumulated rotation back to zero.
		return &gesture{
			id: uuid.NewString(), gtype: gtype, role: RoleRightArm, bone: bone,
			original:    bone.Rotation,
			target:      bone.Rotation.Mul(-1),
			cycleFrames: frames(800 * time.Millisecond),
			repeats:     1,
		}

	case GestureIdle:
		bone := e.resolveRole(RoleHead)
		if bone == nil {
			return nil
		}
		return &gesture{
			id: uuid.NewString(), gtype: gtype, role: RoleHead, bone: bone,
			original:    bone.Rotation,
			amplitude:   float32(math.Pi) / 16 * i,
			cycles:      1,
			cycleFrames: int(3 * time.Second / frameInterval),
			repeats:     -1,
		}

	case GestureShrug:
		// No shoulder bone binding has been mapped for this rig yet.
		return nil
	}
	return nil
}

// Update advances all active gestures one animation frame.
func (e *Engine) Update() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for role, g := range e.active {
		if g.inGap {
			g.frame++
			if g.frame >= g.gapFrames {
				g.inGap = false
				g.frame = 0
			}
			continue
		}

		g.frame++
		p := float32(g.frame) / float32(g.cycleFrames)
		if p > 1 {
			p = 1
		}

		if g.amplitude != 0 {
			// Oscillating clip: sinusoid around the original rotation.
			phase := 2 * math.Pi * float64(g.cycles) * float64(p)
			offset := g.amplitude * float32(math.Sin(phase))
			g.bone.Rotation = g.original.Add(mgl32.Vec3{0, offset, 0})
		} else {
			eased := easeInOutQuad(p)
			g.bone.Rotation = g.original.Add(g.target.Mul(eased))
		}

		if g.frame >= g.cycleFrames {
			if g.repeats < 0 {
				// Idle loops forever until superseded.
				g.frame = 0
				continue
			}
			g.repeats--
			g.bone.Rotation = g.original
			if g.repeats <= 0 {
				delete(e.active, role)
				e.logger.Debug().Str("gesture_id", g.id).Msg("Gesture finished")
				continue
			}
			g.frame = 0
			if g.gapFrames > 0 {
				g.inGap = true
			}
		}
	}
}

// StopAll supersedes every active gesture, restoring original rotations.
func (e *Engine) StopAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for role, g := range e.active {
		g.bone.Rotation = g.original
		delete(e.active, role)
	}
}

// ActiveGestures reports the gesture types currently playing.
func (e *Engine) ActiveGestures() []GestureType {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]GestureType, 0, len(e.active))
	for _, g := range e.active {
		out = append(out, g.gtype)
	}
	return out
}

// eased quadratic in-out: slow start, fast middle, slow end.
func easeInOutQuad(p float32) float32 {
	if p < 0.5 {
		return 2 * p * p
	}
	return -1 + (4-2*p)*p
}
