package kernel

import (
	"context"
	"time"
)

const (
	// HookClass is the hook class of the kernel operations.
	HookClass = "kernel.Kernel"

	// OpHandle turns a request into a response. Args: *Request, RequestType.
	OpHandle = "Handle"

	// OpHandleError converts a controller error into a response.
	// Args: *Request, RequestType, error.
	OpHandleError = "HandleError"

	// OpTerminate runs after the response was sent. Args: *Request, *Response.
	OpTerminate = "Terminate"
)

const (
	// AttrRoute holds the name of the matched route.
	AttrRoute = "_route"

	// AttrController identifies the controller that handles the request.
	AttrController = "_controller"

	attrError = "_error"
)

// Config holds the kernel and HTTP server settings.
type Config struct {
	// Address is the listen address of the HTTP server.
	Address string `yaml:"address" envconfig:"KERNEL_ADDRESS" default:":8080"`

	// Mode is the gin mode: debug, release or test.
	Mode string `yaml:"mode" envconfig:"KERNEL_GIN_MODE" default:"release"`

	// CatchErrors turns controller errors into error responses. When false
	// they are returned from Handle.
	CatchErrors bool `yaml:"catch_errors" envconfig:"KERNEL_CATCH_ERRORS" default:"true"`

	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" envconfig:"KERNEL_READ_HEADER_TIMEOUT" default:"10s"`
}

// Logger is the subset of the logger used by the kernel.
type Logger interface {
	InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}
