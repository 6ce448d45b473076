package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/labstack/echo/v4"

	"github.com/gooseontheloose/Group-Guard-for-VRChat-sub004/automod"
	"github.com/gooseontheloose/Group-Guard-for-VRChat-sub004/automod/interceptlog"
	"github.com/gooseontheloose/Group-Guard-for-VRChat-sub004/automod/rulestore"
)

type GenericError struct {
	Error string `json:"error"`
}

func (s *Server) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	var httpError *echo.HTTPError
	if errors.As(err, &httpError) {
		code = httpError.Code
	}
	if code >= 500 {
		s.logger.Warn("groupguard-http-internal-error", "err", err)
	}
	c.JSON(code, GenericError{Error: err.Error()})
}

type HealthStatus struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

func (s *Server) HandleHealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthStatus{Status: "ok", Service: "groupguard", Version: versioninfo.Short()})
}

func (s *Server) HandleGetOccupancy(c echo.Context) error {
	return c.JSON(http.StatusOK, s.tracker.Snapshot())
}

func (s *Server) HandleGetSession(c echo.Context) error {
	return c.JSON(http.StatusOK, s.tracker.Session())
}

func (s *Server) HandleKickOccupant(c echo.Context) error {
	id := c.Param("id")
	if !s.tracker.MarkKicked(id) {
		return echo.NewHTTPError(http.StatusNotFound, "no active occupant with that id")
	}
	// upstream state is expected to change after a removal
	s.dir.Purge(id)
	return c.NoContent(http.StatusNoContent)
}

type InterceptionList struct {
	Entries []interceptlog.Entry `json:"entries"`
	Total   int64                `json:"total"`
}

func (s *Server) HandleListInterceptions(c echo.Context) error {
	ctx := c.Request().Context()
	limit := 0
	if q := c.QueryParam("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}
	entries, err := s.intercepts.List(ctx, limit)
	if err != nil {
		return err
	}
	total, err := s.intercepts.Count(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, InterceptionList{Entries: entries, Total: total})
}

func (s *Server) HandleRemoveInterception(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid entry id")
	}
	if err := s.intercepts.Remove(c.Request().Context(), id); err != nil {
		if errors.Is(err, interceptlog.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "no such entry")
		}
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// recordInterception appends a rejecting decision to the interception log,
// tagged with the current session's group.
func (s *Server) recordInterception(c echo.Context, subject *automod.Candidate, dec automod.Decision) error {
	_, err := s.intercepts.Append(c.Request().Context(), interceptlog.Entry{
		Timestamp:          time.Now().UTC(),
		SubjectID:          subject.ID,
		SubjectDisplayName: subject.DisplayName,
		SessionGroupID:     s.tracker.Session().GroupID,
		Decision:           dec,
	})
	if err == nil {
		interceptionsRecorded.Inc()
	}
	return err
}

func (s *Server) HandleEvaluate(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "HandleEvaluate")
	defer span.End()

	var cand automod.Candidate
	if err := c.Bind(&cand); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid candidate")
	}
	rs, err := s.rules.GetRuleSet(ctx)
	if err != nil {
		return err
	}
	dec := s.engine.Evaluate(&cand, rs)
	if dec.Action == automod.DecisionReject {
		if err := s.recordInterception(c, &cand, dec); err != nil {
			s.logger.Error("failed to record interception", "subject", cand.ID, "err", err)
		}
	}
	return c.JSON(http.StatusOK, dec)
}

type ScanRequest struct {
	Members []automod.Candidate `json:"members"`
}

type ScanResponse struct {
	Results []automod.ScanResult `json:"results"`
}

func (s *Server) HandleScan(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "HandleScan")
	defer span.End()

	var req ScanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid scan request")
	}
	scansRequested.Inc()
	rs, err := s.rules.GetRuleSet(ctx)
	if err != nil {
		return err
	}
	results, err := s.engine.ScanMembers(ctx, req.Members, rs)
	if err != nil {
		return err
	}
	for i := range results {
		if results[i].Decision.Action == automod.DecisionReject {
			if err := s.recordInterception(c, &results[i].Subject, results[i].Decision); err != nil {
				s.logger.Error("failed to record interception", "subject", results[i].Subject.ID, "err", err)
			}
		}
	}
	return c.JSON(http.StatusOK, ScanResponse{Results: results})
}

type RuleList struct {
	Rules []automod.Rule `json:"rules"`
}

func (s *Server) HandleListRules(c echo.Context) error {
	rs, err := s.rules.GetRuleSet(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, RuleList{Rules: rs.Rules})
}

func (s *Server) HandleGetRule(c echo.Context) error {
	rule, err := s.rules.GetRule(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, rulestore.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "no such rule")
		}
		return err
	}
	return c.JSON(http.StatusOK, rule)
}

func (s *Server) HandlePutRule(c echo.Context) error {
	var rule automod.Rule
	if err := c.Bind(&rule); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid rule")
	}
	rule.ID = c.Param("id")
	if rule.Action == "" {
		rule.Action = automod.ActionReject
	}
	// round-trip the config payload so malformed variants are rejected here,
	// not silently skipped at evaluation time
	raw, err := rule.MarshalConfig()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := rule.ParseConfig(raw); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := s.rules.PutRule(c.Request().Context(), rule); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rule)
}

func (s *Server) HandleDeleteRule(c echo.Context) error {
	if err := s.rules.DeleteRule(c.Request().Context(), c.Param("id")); err != nil {
		if errors.Is(err, rulestore.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "no such rule")
		}
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
