package main

import (
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"droneapi/internal/pkg/upstream"
	"droneapi/pkg/drone"
	"droneapi/pkg/logentry"
)

const (
	msgConfigNotFound   = "drone config not found"
	msgStatusNotFound   = "drone status not found"
	msgConfigUpstream   = "upstream config server error"
	msgLogUpstream      = "upstream log server error"
	msgInvalidPayload   = "invalid payload"
	maxCreateLogPayload = 100 << 10
)

type healthDTO struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
	TS      string `json:"ts"`
}

func (env *environment) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthDTO{
		OK:      true,
		Service: env.Config.ServiceName,
		TS:      env.now().UTC().Format("2006-01-02T15:04:05.000Z"),
	})
}

func (env *environment) GetConfig(w http.ResponseWriter, r *http.Request) {

	droneObj, ok := env.findDrone(w, r, "GET /configs/{droneId}", msgConfigNotFound)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, droneObj.GetConfigDTO())
}

func (env *environment) GetStatus(w http.ResponseWriter, r *http.Request) {

	droneObj, ok := env.findDrone(w, r, "GET /status/{droneId}", msgStatusNotFound)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, droneObj.GetStatusDTO())
}

// findDrone writes the error response itself when it returns false.
func (env *environment) findDrone(w http.ResponseWriter, r *http.Request, route, notFound string) (*drone.Drone, bool) {

	droneID := mux.Vars(r)["droneId"]

	configs, err := env.configs.ListConfigs(r.Context())
	if err != nil {
		env.Logger.Error(msgConfigUpstream, zap.String("route", route), zap.Error(err))
		writeError(w, http.StatusBadGateway, msgConfigUpstream)
		return nil, false
	}

	droneObj, found := drone.Find(configs, droneID)
	if !found {
		writeError(w, http.StatusNotFound, notFound)
		return nil, false
	}

	return droneObj, true
}

func (env *environment) GetLogs(w http.ResponseWriter, r *http.Request) {

	droneID := mux.Vars(r)["droneId"]

	page, err := env.logs.ListLogs(r.Context(), upstream.LogQuery{
		Filter:  logentry.Filter(droneID),
		Sort:    logentry.SortOrder,
		PerPage: logentry.PageSize,
		Page:    logentry.Page(r.URL.Query().Get("page")),
	})
	if err != nil {
		env.Logger.Error(msgLogUpstream, zap.String("route", "GET /logs/{droneId}"), zap.Error(err))
		writeError(w, http.StatusBadGateway, msgLogUpstream)
		return
	}

	writeJSON(w, http.StatusOK, logentry.Project(page.Items))
}

func (env *environment) CreateLog(w http.ResponseWriter, r *http.Request) {

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCreateLogPayload+1))
	if err != nil || len(body) > maxCreateLogPayload {
		env.Logger.Debug("could not read log entry body", zap.Error(err), zap.Int("size", len(body)))
		writeError(w, http.StatusBadRequest, msgInvalidPayload)
		return
	}

	dto := logentry.LogEntryDTO{}
	if err := sonic.ConfigStd.Unmarshal(body, &dto); err != nil {
		env.Logger.Debug("could not decode log entry json object", zap.Error(err))
		writeError(w, http.StatusBadRequest, msgInvalidPayload)
		return
	}

	entry, err := logentry.NewLogEntry(dto)
	if err != nil {
		env.Logger.Debug("could not obtain log entry from dto", zap.Error(err))
		writeError(w, http.StatusBadRequest, msgInvalidPayload)
		return
	}

	stored, err := env.logs.CreateLog(r.Context(), entry.GetPayload())
	if err != nil {
		env.Logger.Error(msgLogUpstream, zap.String("route", "POST /logs"), zap.Error(err))
		status, ok := upstream.StatusCode(err)
		if !ok {
			status = http.StatusBadGateway
		}
		writeError(w, status, msgLogUpstream)
		return
	}

	writeJSON(w, http.StatusCreated, entry.GetCreatedDTO(*stored))
}
