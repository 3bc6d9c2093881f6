package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ruled/ruled/pkg/metric"
	"github.com/ruled/ruled/pkg/rest/model"
	"github.com/ruled/ruled/pkg/ruleset"
	"github.com/ruled/ruled/pkg/server/web"
)

// maxEnvelopeBytes bounds the match request body.
const maxEnvelopeBytes = 64 * 1024

// MatchV1 selects the rule for the posted envelope.  A deferred selection is reported with
// 503 so the caller retries later.
func MatchV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	var jenv model.JSONEnvelopeV1
	dec := json.NewDecoder(io.LimitReader(req.Body, maxEnvelopeBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&jenv); err != nil {
		http.Error(w, fmt.Sprintf("Invalid envelope: %v", err), http.StatusBadRequest)
		return nil
	}
	env, err := jenv.Envelope()
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid envelope: %v", err), http.StatusBadRequest)
		return nil
	}

	mctx, cancel := ctx.MatchContext(req.Context())
	defer cancel()
	// Evaluate and report against one snapshot, a reload may publish another meanwhile.
	rs := ctx.Matcher.Rules.Load()
	start := time.Now()
	sel, err := ruleset.Select(mctx, rs, env, ctx.Matcher.Observer)
	metric.ObserveMatch(start)

	result := &model.JSONMatchResultV1{RequestID: ctx.RequestID}
	var ie *ruleset.IndeterminateError
	switch {
	case err == nil:
		result.Result = model.ResultMatch
		result.Position = sel.Position
		result.Rule = sel.Rule.Description()
		result.Action = sel.Rule.Action()
		result.Version = sel.Version
	case errors.Is(err, ruleset.ErrNoRuleMatched):
		result.Result = model.ResultNoMatch
		result.Version = rs.Version()
	case errors.As(err, &ie):
		result.Result = model.ResultDefer
		result.Reason = ie.Reason.String()
		result.Criterion = ie.Kind.String()
		result.Table = ie.Table
		result.Error = ruleset.ErrIndeterminate.Error()
		return web.RenderJSONStatus(w, http.StatusServiceUnavailable, result)
	default:
		return err
	}
	return web.RenderJSON(w, result)
}

// ReloadV1 reloads the ruleset file.  A failed reload keeps the current ruleset.
func ReloadV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	if ctx.Reloader == nil {
		http.Error(w, "Reload not available", http.StatusNotImplemented)
		return nil
	}
	rs, err := ctx.Reloader.Reload(req.Context())
	if err != nil {
		ctx.Logger.Warn().Err(err).Msg("Ruleset reload requested by API failed")
		http.Error(w, fmt.Sprintf("Reload failed: %v", err), http.StatusUnprocessableEntity)
		return nil
	}
	return web.RenderJSON(w, rulesetV1(rs))
}

// RulesetV1 lists the published ruleset.
func RulesetV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	return web.RenderJSON(w, rulesetV1(ctx.Matcher.Rules.Load()))
}

func rulesetV1(rs *ruleset.Ruleset) *model.JSONRulesetV1 {
	rules := rs.Rules()
	jrs := &model.JSONRulesetV1{
		Version: rs.Version(),
		Rules:   make([]*model.JSONRuleV1, len(rules)),
	}
	for i, r := range rules {
		jrs.Rules[i] = &model.JSONRuleV1{
			Position: i + 1,
			Rule:     r.Description(),
			Action:   r.Action(),
		}
	}
	return jrs
}
