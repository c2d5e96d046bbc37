// Package plugin provides the built-in behavior-unit implementations.
// Importing it registers them with the world's plugin type registry.
package plugin

import (
	"errors"
	"path/filepath"

	"github.com/ByteArena/box2d"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/flatsim/flatsim/internal/document"
	"github.com/flatsim/flatsim/internal/timekeeper"
	"github.com/flatsim/flatsim/internal/world"
)

func init() {
	world.RegisterPluginType("lua", func() world.ModelPlugin { return &LuaPlugin{} })
}

// LuaPlugin runs a behavior script in its own Lua VM. Single-goroutine access
// only (the simulation loop), same as the rest of the world.
//
// Recognized script globals, all optional:
//
//	on_initialize(name)
//	before_physics_step(dt, elapsed)
//	after_physics_step(dt, elapsed)
//	begin_contact()
//	end_contact()
//
// Contact hooks fire only for contacts that involve the owning model. The
// host registers get_pose, apply_force and set_velocity into the VM.
type LuaPlugin struct {
	world.PluginBase

	name  string
	model *world.Model
	vm    *lua.LState
	log   *zap.Logger

	hasBefore bool
	hasAfter  bool
	hasBegin  bool
	hasEnd    bool
}

type luaConfig struct {
	Name   string `yaml:"name"`
	Script string `yaml:"script"`
}

func (p *LuaPlugin) Initialize(w *world.World, m *world.Model, cfg *document.Node) error {
	var c luaConfig
	if err := cfg.Decode(&c); err != nil {
		return err
	}
	if c.Script == "" {
		return errors.New("missing \"script\" in lua plugin")
	}
	p.name = c.Name
	if p.name == "" {
		p.name = filepath.Base(c.Script)
	}
	p.model = m
	p.log = w.Log().Named("lua").With(
		zap.String("plugin", p.name),
		zap.String("model", m.Name()))

	script := c.Script
	if !filepath.IsAbs(script) {
		script = filepath.Join(filepath.Dir(m.Path()), script)
	}

	p.vm = lua.NewState()
	p.registerAPI()
	if err := p.vm.DoFile(script); err != nil {
		p.vm.Close()
		p.vm = nil
		return err
	}

	p.hasBefore = p.vm.GetGlobal("before_physics_step") != lua.LNil
	p.hasAfter = p.vm.GetGlobal("after_physics_step") != lua.LNil
	p.hasBegin = p.vm.GetGlobal("begin_contact") != lua.LNil
	p.hasEnd = p.vm.GetGlobal("end_contact") != lua.LNil

	if fn := p.vm.GetGlobal("on_initialize"); fn != lua.LNil {
		if err := p.vm.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, lua.LString(p.name)); err != nil {
			p.vm.Close()
			p.vm = nil
			return err
		}
	}
	return nil
}

// registerAPI installs the host functions the script may call. All of them
// address the owning model's bodies by name.
func (p *LuaPlugin) registerAPI() {
	p.vm.SetGlobal("get_pose", p.vm.NewFunction(func(L *lua.LState) int {
		b := p.checkBody(L)
		pos := b.Physics().GetPosition()
		L.Push(lua.LNumber(pos.X))
		L.Push(lua.LNumber(pos.Y))
		L.Push(lua.LNumber(b.Physics().GetAngle()))
		return 3
	}))

	p.vm.SetGlobal("apply_force", p.vm.NewFunction(func(L *lua.LState) int {
		b := p.checkBody(L)
		fx := float64(L.CheckNumber(2))
		fy := float64(L.CheckNumber(3))
		b.Physics().ApplyForce(box2d.MakeB2Vec2(fx, fy), b.Physics().GetWorldCenter(), true)
		return 0
	}))

	p.vm.SetGlobal("set_velocity", p.vm.NewFunction(func(L *lua.LState) int {
		b := p.checkBody(L)
		vx := float64(L.CheckNumber(2))
		vy := float64(L.CheckNumber(3))
		omega := float64(L.CheckNumber(4))
		b.Physics().SetLinearVelocity(box2d.MakeB2Vec2(vx, vy))
		b.Physics().SetAngularVelocity(omega)
		return 0
	}))
}

func (p *LuaPlugin) checkBody(L *lua.LState) *world.Body {
	name := L.CheckString(1)
	b := p.model.GetBody(name)
	if b == nil {
		L.ArgError(1, "unknown body "+name)
	}
	return b
}

// Close shuts the script VM down. Called from world teardown.
func (p *LuaPlugin) Close() {
	if p.vm != nil {
		p.vm.Close()
		p.vm = nil
	}
}

func (p *LuaPlugin) BeforePhysicsStep(tk *timekeeper.Timekeeper) {
	if !p.hasBefore {
		return
	}
	p.callStepHook("before_physics_step", tk)
}

func (p *LuaPlugin) AfterPhysicsStep(tk *timekeeper.Timekeeper) {
	if !p.hasAfter {
		return
	}
	p.callStepHook("after_physics_step", tk)
}

func (p *LuaPlugin) callStepHook(name string, tk *timekeeper.Timekeeper) {
	fn := p.vm.GetGlobal(name)
	if fn == lua.LNil {
		return
	}
	err := p.vm.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true},
		lua.LNumber(tk.StepSize()), lua.LNumber(tk.Elapsed()))
	if err != nil {
		p.log.Error("lua step hook error", zap.String("hook", name), zap.Error(err))
	}
}

func (p *LuaPlugin) BeginContact(contact box2d.B2ContactInterface) {
	if !p.hasBegin || !p.involvesModel(contact) {
		return
	}
	p.callContactHook("begin_contact")
}

func (p *LuaPlugin) EndContact(contact box2d.B2ContactInterface) {
	if !p.hasEnd || !p.involvesModel(contact) {
		return
	}
	p.callContactHook("end_contact")
}

func (p *LuaPlugin) callContactHook(name string) {
	fn := p.vm.GetGlobal(name)
	if fn == lua.LNil {
		return
	}
	if err := p.vm.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}); err != nil {
		p.log.Error("lua contact hook error", zap.String("hook", name), zap.Error(err))
	}
}

// involvesModel reports whether either fixture of the contact belongs to the
// plugin's model, resolved through the body wrapper in user data.
func (p *LuaPlugin) involvesModel(contact box2d.B2ContactInterface) bool {
	for _, f := range []*box2d.B2Fixture{contact.GetFixtureA(), contact.GetFixtureB()} {
		if f == nil {
			continue
		}
		if b, ok := f.GetBody().GetUserData().(*world.Body); ok && b.Owner() == world.Entity(p.model) {
			return true
		}
	}
	return false
}
