package database

import (
	"errors"

	"gorm.io/gorm"

	"github.com/Aleph-Alpha/otel-instrumentation/v1/hook"
)

const (
	gormPluginName    = "otel-instrumentation:statements"
	gormInvocationKey = "otel-instrumentation:invocation"
)

// GormPlugin runs the Execute hook pairs around gorm statements. The SQL is
// built by gorm between the two callbacks, so exit actions see the final
// query text.
type GormPlugin struct {
	hooks *hook.Registry
}

var _ gorm.Plugin = (*GormPlugin)(nil)

func NewGormPlugin(hooks *hook.Registry) *GormPlugin {
	return &GormPlugin{hooks: hooks}
}

func (p *GormPlugin) Name() string {
	return gormPluginName
}

func (p *GormPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register(gormPluginName+":before_create", p.before),
		cb.Create().After("gorm:create").Register(gormPluginName+":after_create", p.after),
		cb.Query().Before("gorm:query").Register(gormPluginName+":before_query", p.before),
		cb.Query().After("gorm:query").Register(gormPluginName+":after_query", p.after),
		cb.Update().Before("gorm:update").Register(gormPluginName+":before_update", p.before),
		cb.Update().After("gorm:update").Register(gormPluginName+":after_update", p.after),
		cb.Delete().Before("gorm:delete").Register(gormPluginName+":before_delete", p.before),
		cb.Delete().After("gorm:delete").Register(gormPluginName+":after_delete", p.after),
		cb.Row().Before("gorm:row").Register(gormPluginName+":before_row", p.before),
		cb.Row().After("gorm:row").Register(gormPluginName+":after_row", p.after),
		cb.Raw().Before("gorm:raw").Register(gormPluginName+":before_raw", p.before),
		cb.Raw().After("gorm:raw").Register(gormPluginName+":after_raw", p.after),
	)
}

func (p *GormPlugin) before(db *gorm.DB) {
	ctx, inv := p.hooks.Enter(db.Statement.Context, hook.Call{
		Receiver: gormStatement{db.Statement},
		Args:     db.Statement.Vars,
		Class:    HookClass,
		Function: OpExecute,
	})
	db.Statement.Context = ctx
	db.InstanceSet(gormInvocationKey, inv)
}

func (p *GormPlugin) after(db *gorm.DB) {
	v, ok := db.InstanceGet(gormInvocationKey)
	if !ok {
		return
	}
	inv, _ := v.(*hook.Invocation)
	inv.Exit(db.Statement.RowsAffected, db.Error)
}

type gormStatement struct {
	stmt *gorm.Statement
}

func (s gormStatement) QueryString() string {
	return s.stmt.SQL.String()
}
