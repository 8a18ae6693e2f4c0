// Package model provides the traversable scene graph the animation core
// writes to: per-mesh morph dictionaries with influence buffers, plus
// skeleton bones addressable by name.
package model

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
)

// Mesh exposes a morph-target name dictionary and a parallel influence
// buffer. Multiple meshes in one graph may carry the same channel name.
type Mesh struct {
	Name       string
	MorphNames map[string]int
	Influences []float32
}

// Bone is a skeleton node addressable by name. Rotation is Euler XYZ
// in radians.
type Bone struct {
	Name     string
	Rotation mgl32.Vec3
	Position mgl32.Vec3
}

// Graph is an already-resolved scene graph reference. The core never
// loads assets itself beyond LoadGraph; it only reads and writes this.
type Graph struct {
	Meshes []*Mesh
	Bones  []*Bone
}

// FindBone returns the first bone with the exact name, or nil.
func (g *Graph) FindBone(name string) *Bone {
	if g == nil {
		return nil
	}
	for _, b := range g.Bones {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// LoadGraph parses a glTF asset into a Graph. Morph-target channel names
// come from the mesh extras "targetNames" array; meshes without named
// targets still get an influence buffer with index-only slots.
func LoadGraph(path string) (*Graph, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}
	return graphFromDocument(doc)
}

func graphFromDocument(doc *gltf.Document) (*Graph, error) {
	if len(doc.Meshes) == 0 {
		return nil, fmt.Errorf("no meshes in file")
	}

	g := &Graph{}

	for _, gm := range doc.Meshes {
		targetCount := 0
		if len(gm.Primitives) > 0 {
			targetCount = len(gm.Primitives[0].Targets)
		}
		if targetCount == 0 && len(gm.Weights) > 0 {
			targetCount = len(gm.Weights)
		}

		mesh := &Mesh{
			Name:       gm.Name,
			MorphNames: make(map[string]int, targetCount),
			Influences: make([]float32, targetCount),
		}

		// Target names live in the mesh extras per the glTF convention.
		if extras, ok := gm.Extras.(map[string]interface{}); ok {
			if targetNames, ok := extras["targetNames"].([]interface{}); ok {
				for i, name := range targetNames {
					if i >= targetCount {
						break
					}
					if strName, ok := name.(string); ok {
						mesh.MorphNames[strName] = i
					}
				}
			}
		}

		g.Meshes = append(g.Meshes, mesh)
	}

	for _, node := range doc.Nodes {
		if node.Name == "" {
			continue
		}
		g.Bones = append(g.Bones, &Bone{
			Name:     node.Name,
			Rotation: quatToEuler(node.Rotation),
			Position: mgl32.Vec3{
				float32(node.Translation[0]),
				float32(node.Translation[1]),
				float32(node.Translation[2]),
			},
		})
	}

	return g, nil
}

// quatToEuler converts a glTF XYZW quaternion to XYZ Euler radians.
func quatToEuler(q [4]float64) mgl32.Vec3 {
	quat := mgl32.Quat{
		W: float32(q[3]),
		V: mgl32.Vec3{float32(q[0]), float32(q[1]), float32(q[2])},
	}
	x, y, z := eulerFromQuat(quat)
	return mgl32.Vec3{x, y, z}
}

func eulerFromQuat(q mgl32.Quat) (x, y, z float32) {
	w := q.W
	qx, qy, qz := q.V[0], q.V[1], q.V[2]

	sinrCosp := 2 * (w*qx + qy*qz)
	cosrCosp := 1 - 2*(qx*qx+qy*qy)
	x = atan2f(sinrCosp, cosrCosp)

	sinp := 2 * (w*qy - qz*qx)
	if sinp >= 1 {
		y = mgl32.DegToRad(90)
	} else if sinp <= -1 {
		y = mgl32.DegToRad(-90)
	} else {
		y = asinf(sinp)
	}

	sinyCosp := 2 * (w*qz + qx*qy)
	cosyCosp := 1 - 2*(qy*qy+qz*qz)
	z = atan2f(sinyCosp, cosyCosp)
	return
}

func atan2f(y, x float32) float32 {
	return float32(math.Atan2(float64(y), float64(x)))
}

func asinf(v float32) float32 {
	return float32(math.Asin(float64(v)))
}
