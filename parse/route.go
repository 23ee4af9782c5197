// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package parse

import (
	"context"
	"log/slog"

	"github.com/poiesic/docmill/core"
)

// Route pairs a parser with the predicate naming the documents it
// accepts.
type Route struct {
	Match  func(doc Document) bool
	Parser Parser
}

// Router dispatches each document to the first route whose predicate
// accepts it, falling back to a default parser. It lets binary formats
// go to a remote conversion service while text-native content is parsed
// in process.
type Router struct {
	routes   []Route
	fallback Parser
	logger   *slog.Logger
}

var _ Parser = (*Router)(nil)

// NewRouter creates a router over the given routes, tried in order.
func NewRouter(fallback Parser, routes ...Route) *Router {
	return &Router{
		routes:   routes,
		fallback: fallback,
		logger:   slog.Default().With("component", "parse.router"),
	}
}

func (r *Router) Parse(ctx context.Context, doc Document, opts core.ParseOptions) (*Result, error) {
	for i, route := range r.routes {
		if route.Match(doc) {
			r.logger.Debug("document routed", "name", doc.Name, "mime", doc.MIME, "route", i)
			return route.Parser.Parse(ctx, doc, opts)
		}
	}
	r.logger.Debug("document routed to fallback", "name", doc.Name, "mime", doc.MIME)
	return r.fallback.Parse(ctx, doc, opts)
}
