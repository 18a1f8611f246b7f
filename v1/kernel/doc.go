// Package kernel is a small request kernel on top of gin.
//
// It buffers the response of every request so the full request lifecycle can
// be observed as three hookable operations:
//
//   - Handle: routes the request and produces a response
//   - HandleError: converts a controller error into a response
//   - Terminate: runs after the response was sent to the client
//
// ServeHTTP drives the lifecycle for requests from the network. Controllers
// can issue sub-requests that travel through Handle again:
//
//	k := kernel.New(cfg, hooks, log)
//	k.Route(http.MethodGet, "/orders/:id", "order_show", func(c *gin.Context) error {
//		frag, err := k.SubRequest(c.Request.Context(), "fragments.Summary", http.MethodGet, "/fragments/summary", nil)
//		if err != nil {
//			return err
//		}
//		c.Data(http.StatusOK, "text/html", frag.Body)
//		return nil
//	})
//
// Routing stores the route name and a controller identifier as request
// attributes (AttrRoute, AttrController).
package kernel
