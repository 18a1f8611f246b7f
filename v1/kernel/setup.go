package kernel

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"runtime"

	"github.com/gin-gonic/gin"

	"github.com/Aleph-Alpha/otel-instrumentation/v1/hook"
)

// Controller handles a routed request. A returned error is turned into a
// response by HandleError.
type Controller func(c *gin.Context) error

// TerminateFunc runs after the response of a main request was sent.
type TerminateFunc func(ctx context.Context, req *Request, resp *Response)

// Kernel turns requests into responses through a gin router, exposing
// Handle, HandleError and Terminate as hookable operations.
type Kernel struct {
	cfg         Config
	engine      *gin.Engine
	hooks       *hook.Registry
	logger      Logger
	terminators []TerminateFunc
}

// New creates a kernel. hooks and logger may be nil.
func New(cfg Config, hooks *hook.Registry, logger Logger) *Kernel {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	return &Kernel{
		cfg:    cfg,
		engine: gin.New(),
		hooks:  hooks,
		logger: logger,
	}
}

// Engine returns the gin engine for middleware and fallback handlers.
func (k *Kernel) Engine() *gin.Engine {
	return k.engine
}

// Route registers controller for method and path under the route name.
func (k *Kernel) Route(method, path, name string, controller Controller) {
	id := controllerName(controller)
	k.engine.Handle(method, path, func(c *gin.Context) {
		req := FromGin(c)
		if req != nil {
			req.SetAttribute(AttrRoute, name)
			req.SetAttribute(AttrController, id)
		}
		if err := controller(c); err != nil {
			c.Abort()
			if req != nil {
				req.SetAttribute(attrError, err)
				return
			}
			c.String(StatusOf(err), http.StatusText(StatusOf(err)))
		}
	})
}

// OnTerminate registers fn to run at termination.
func (k *Kernel) OnTerminate(fn TerminateFunc) {
	k.terminators = append(k.terminators, fn)
}

// ServeHTTP handles r as a main request in a new unit of work, sends the
// response and terminates.
func (k *Kernel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := k.hooks.BeginUnit(r.Context())
	req := NewRequest(r)

	// A panic in handling still terminates the request; one in termination
	// is left alone since the terminate exit already ran.
	terminating := false
	defer func() {
		if terminating {
			return
		}
		rec := recover()
		if rec == nil {
			return
		}
		k.logError(ctx, "panic while handling request", fmt.Errorf("%v", rec), map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
		})
		resp := errorResponse(http.StatusInternalServerError)
		resp.Protocol = req.Protocol()
		if err := resp.Send(w); err != nil {
			k.logInfo(ctx, "failed to send response", err, nil)
		}
		k.Terminate(ctx, req, resp)
		panic(rec)
	}()

	resp, err := k.Handle(ctx, req, MainRequest)
	if err != nil {
		k.logError(ctx, "unhandled error while handling request", err, map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
		})
		resp = errorResponse(StatusOf(err))
	}

	if err := resp.Send(w); err != nil {
		k.logInfo(ctx, "failed to send response", err, nil)
	}

	terminating = true
	k.Terminate(ctx, req, resp)
}

// Handle routes req and returns the buffered response.
func (k *Kernel) Handle(ctx context.Context, req *Request, typ RequestType) (*Response, error) {
	res, err := k.hooks.Invoke(ctx, hook.Call{
		Receiver: k,
		Args:     []any{req, typ},
		Class:    HookClass,
		Function: OpHandle,
	}, func(ctx context.Context, args []any) (any, error) {
		req, ok := args[0].(*Request)
		if !ok {
			return nil, ErrNoResponse
		}
		typ, _ := args[1].(RequestType)
		return k.handle(ctx, req, typ)
	})
	resp, _ := res.(*Response)
	if err == nil && resp == nil {
		err = ErrNoResponse
	}
	return resp, err
}

func (k *Kernel) handle(ctx context.Context, req *Request, typ RequestType) (*Response, error) {
	w := newBufferWriter()
	r := req.HTTP.WithContext(context.WithValue(ctx, requestKey{}, req))

	k.engine.ServeHTTP(w, r)

	if err, ok := req.attributes[attrError].(error); ok {
		delete(req.attributes, attrError)
		return k.HandleError(ctx, req, typ, err)
	}
	return w.response(req.Protocol()), nil
}

// HandleError turns err into a response, or returns it when error catching
// is disabled.
func (k *Kernel) HandleError(ctx context.Context, req *Request, typ RequestType, err error) (*Response, error) {
	res, herr := k.hooks.Invoke(ctx, hook.Call{
		Receiver: k,
		Args:     []any{req, typ, err},
		Class:    HookClass,
		Function: OpHandleError,
	}, func(ctx context.Context, args []any) (any, error) {
		err, _ := args[2].(error)
		if !k.cfg.CatchErrors {
			return nil, err
		}
		k.logError(ctx, "controller failed", err, map[string]interface{}{
			"method": req.Method(),
			"path":   req.HTTP.URL.Path,
			"status": StatusOf(err),
		})
		resp := errorResponse(StatusOf(err))
		resp.Protocol = req.Protocol()
		return resp, nil
	})
	resp, _ := res.(*Response)
	return resp, herr
}

// SubRequest handles a request issued while handling another one, e.g. to
// render a fragment. controller, when set, identifies the target before
// routing.
func (k *Kernel) SubRequest(ctx context.Context, controller, method, target string, body io.Reader) (*Response, error) {
	r, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req := NewRequest(r)
	if controller != "" {
		req.SetAttribute(AttrController, controller)
	}
	return k.Handle(ctx, req, SubRequest)
}

// Terminate runs the termination listeners.
func (k *Kernel) Terminate(ctx context.Context, req *Request, resp *Response) {
	_, _ = k.hooks.Invoke(ctx, hook.Call{
		Receiver: k,
		Args:     []any{req, resp},
		Class:    HookClass,
		Function: OpTerminate,
	}, func(ctx context.Context, args []any) (any, error) {
		for _, fn := range k.terminators {
			fn(ctx, req, resp)
		}
		return nil, nil
	})
}

// Server returns an HTTP server serving the kernel on the configured address.
func (k *Kernel) Server() *http.Server {
	return &http.Server{
		Addr:              k.cfg.Address,
		Handler:           k,
		ReadHeaderTimeout: k.cfg.ReadHeaderTimeout,
	}
}

func (k *Kernel) logInfo(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if k.logger != nil {
		k.logger.InfoWithContext(ctx, msg, err, fields)
	}
}

func (k *Kernel) logError(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if k.logger != nil {
		k.logger.ErrorWithContext(ctx, msg, err, fields)
	}
}

func controllerName(c Controller) string {
	fn := runtime.FuncForPC(reflect.ValueOf(c).Pointer())
	if fn == nil {
		return "controller"
	}
	return fn.Name()
}
