package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/finsight/fairsplit/internal/ledger"
	"github.com/finsight/fairsplit/internal/money"
	"github.com/finsight/fairsplit/internal/predict"
	"github.com/finsight/fairsplit/internal/query"
	"github.com/finsight/fairsplit/internal/room"
)

// Wire types. Amounts travel as decimal strings ("150.00"); the room's
// currency decides the scale.

type participantPayload struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Weight int64  `json:"weight,omitempty"`
}

type createRoomRequest struct {
	Name         string               `json:"name"`
	Currency     string               `json:"currency,omitempty"`
	Participants []participantPayload `json:"participants"`
}

type eventRequest struct {
	Actor  string            `json:"actor"`
	Amount string            `json:"amount"`
	Policy string            `json:"policy,omitempty"`
	Shares map[string]string `json:"shares,omitempty"`
	Note   string            `json:"note,omitempty"`
}

type eventResponse struct {
	RoomID string `json:"room_id"`
	Seq    int64  `json:"seq"`
}

type roomResponse struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	Currency     string               `json:"currency"`
	Status       string               `json:"status"`
	CreatedAt    time.Time            `json:"created_at"`
	Participants []participantPayload `json:"participants"`
}

type balancesResponse struct {
	Accounts map[string]string `json:"accounts"`
	Pool     string            `json:"pool"`
}

type transferResponse struct {
	From      string  `json:"from"`
	To        string  `json:"to"`
	Amount    string  `json:"amount"`
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale"`
}

type settlementResponse struct {
	Positions map[string]string  `json:"positions"`
	Transfers []transferResponse `json:"transfers"`
}

type annotatedExpenseResponse struct {
	Seq       int64             `json:"seq"`
	Payer     string            `json:"payer"`
	Amount    string            `json:"amount"`
	Policy    string            `json:"policy"`
	Shares    map[string]string `json:"shares"`
	Note      string            `json:"note,omitempty"`
	At        time.Time         `json:"at"`
	Score     float64           `json:"score"`
	Rationale string            `json:"rationale"`
}

type predictRequest struct {
	Date      string `json:"date"`
	Category  string `json:"category"`
	Estimated string `json:"estimated"`
}

type predictResponse struct {
	PredictedAmount string  `json:"predicted_amount"`
	Label           string  `json:"label"`
	Confidence      float64 `json:"confidence"`
}

func (a *API) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" || len(req.Participants) == 0 {
		http.Error(w, "name and participants are required", http.StatusBadRequest)
		return
	}
	currency := req.Currency
	if currency == "" {
		currency = a.config.Currency
	}

	participants := make([]ledger.Participant, len(req.Participants))
	for i, p := range req.Participants {
		participants[i] = ledger.Participant{
			ID:     ledger.ParticipantID(p.ID),
			Name:   p.Name,
			Weight: p.Weight,
		}
	}

	coord, err := a.rooms.CreateRoom(r.Context(), req.Name, currency, participants)
	if err != nil {
		a.logger.Error("create room failed", "error", err)
		http.Error(w, "failed to create room", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, roomToResponse(coord.Room()))
}

func (a *API) handleListRooms(w http.ResponseWriter, r *http.Request) {
	ids, err := a.rooms.ListRoomIDs(r.Context())
	if err != nil {
		http.Error(w, "failed to list rooms", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"rooms": ids})
}

func (a *API) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	coord, ok := a.coordinator(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, roomToResponse(coord.Room()))
}

func (a *API) handleJoin(w http.ResponseWriter, r *http.Request) {
	coord, ok := a.coordinator(w, r)
	if !ok {
		return
	}

	var p participantPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.ID == "" {
		http.Error(w, "invalid participant", http.StatusBadRequest)
		return
	}

	err := coord.AddParticipant(r.Context(), ledger.Participant{
		ID:     ledger.ParticipantID(p.ID),
		Name:   p.Name,
		Weight: p.Weight,
	})
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, roomToResponse(coord.Room()))
}

func (a *API) handleLeave(w http.ResponseWriter, r *http.Request) {
	coord, ok := a.coordinator(w, r)
	if !ok {
		return
	}

	id := ledger.ParticipantID(mux.Vars(r)["participant_id"])
	if err := coord.DeactivateParticipant(r.Context(), id); err != nil {
		a.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleContribute(w http.ResponseWriter, r *http.Request) {
	coord, ok := a.coordinator(w, r)
	if !ok {
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	amount, err := money.Parse(req.Amount, coord.Room().Currency)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	seq, err := coord.Contribute(r.Context(), ledger.ParticipantID(req.Actor), amount, req.Note)
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, eventResponse{RoomID: coord.ID(), Seq: seq})
}

func (a *API) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	a.handleSharedEvent(w, r, func(coord *room.Coordinator, req eventRequest, amount int64, policy ledger.SplitPolicy, exact map[ledger.ParticipantID]int64) (int64, error) {
		return coord.AddExpense(r.Context(), ledger.ParticipantID(req.Actor), amount, policy, exact, req.Note)
	})
}

func (a *API) handleDistribute(w http.ResponseWriter, r *http.Request) {
	a.handleSharedEvent(w, r, func(coord *room.Coordinator, req eventRequest, amount int64, policy ledger.SplitPolicy, exact map[ledger.ParticipantID]int64) (int64, error) {
		return coord.Distribute(r.Context(), ledger.ParticipantID(req.Actor), amount, policy, exact, req.Note)
	})
}

func (a *API) handleSharedEvent(w http.ResponseWriter, r *http.Request, submit func(*room.Coordinator, eventRequest, int64, ledger.SplitPolicy, map[ledger.ParticipantID]int64) (int64, error)) {
	coord, ok := a.coordinator(w, r)
	if !ok {
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	currency := coord.Room().Currency

	amount, err := money.Parse(req.Amount, currency)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	policy := ledger.SplitPolicy(req.Policy)
	if policy == "" {
		policy = ledger.SplitEqual
	}

	var exact map[ledger.ParticipantID]int64
	if len(req.Shares) > 0 {
		exact = make(map[ledger.ParticipantID]int64, len(req.Shares))
		for id, s := range req.Shares {
			v, err := money.Parse(s, currency)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			exact[ledger.ParticipantID(id)] = v
		}
	}

	seq, err := submit(coord, req, amount, policy, exact)
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, eventResponse{RoomID: coord.ID(), Seq: seq})
}

func (a *API) handleBalances(w http.ResponseWriter, r *http.Request) {
	coord, ok := a.coordinator(w, r)
	if !ok {
		return
	}

	balances, err := coord.Balances()
	if err != nil {
		a.logger.Error("balance replay failed", "room", coord.ID(), "error", err)
		http.Error(w, "failed to compute balances", http.StatusInternalServerError)
		return
	}

	currency := coord.Room().Currency
	resp := balancesResponse{
		Accounts: make(map[string]string, len(balances.Accounts)),
		Pool:     money.Format(balances.Pool, currency),
	}
	for id, v := range balances.Accounts {
		resp.Accounts[string(id)] = money.Format(v, currency)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleSettlement(w http.ResponseWriter, r *http.Request) {
	coord, ok := a.coordinator(w, r)
	if !ok {
		return
	}

	view, err := coord.Settlement()
	if err != nil {
		a.logger.Error("settlement failed", "room", coord.ID(), "error", err)
		http.Error(w, "failed to compute settlement", http.StatusInternalServerError)
		return
	}

	currency := coord.Room().Currency
	resp := settlementResponse{
		Positions: make(map[string]string, len(view.Positions)),
		Transfers: make([]transferResponse, len(view.Transfers)),
	}
	for id, v := range view.Positions {
		resp.Positions[string(id)] = money.Format(v, currency)
	}
	for i, t := range view.Transfers {
		resp.Transfers[i] = transferResponse{
			From:      string(t.Transfer.From),
			To:        string(t.Transfer.To),
			Amount:    money.Format(t.Transfer.Amount, currency),
			Score:     t.Annotation.Score,
			Rationale: t.Annotation.Rationale,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleAnnotatedExpenses(w http.ResponseWriter, r *http.Request) {
	coord, ok := a.coordinator(w, r)
	if !ok {
		return
	}

	currency := coord.Room().Currency
	annotated := coord.AnnotatedExpenses()
	resp := make([]annotatedExpenseResponse, len(annotated))
	for i, ae := range annotated {
		shares := make(map[string]string, len(ae.Event.Shares))
		for id, s := range ae.Event.Shares {
			shares[string(id)] = money.Format(s, currency)
		}
		resp[i] = annotatedExpenseResponse{
			Seq:       ae.Event.Seq,
			Payer:     string(ae.Event.Actor),
			Amount:    money.Format(ae.Event.Amount, currency),
			Policy:    string(ae.Event.Policy),
			Shares:    shares,
			Note:      ae.Event.Note,
			At:        ae.Event.At,
			Score:     ae.Annotation.Score,
			Rationale: ae.Annotation.Rationale,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type loggedEventResponse struct {
	Seq    int64             `json:"seq"`
	Kind   string            `json:"kind"`
	Actor  string            `json:"actor"`
	Amount string            `json:"amount"`
	Policy string            `json:"policy,omitempty"`
	Shares map[string]string `json:"shares,omitempty"`
	Note   string            `json:"note,omitempty"`
	At     time.Time         `json:"at"`
}

// handleQueryEvents serves a filtered slice of the room's event log.
// Filters arrive as query parameters: kind, actor, from_seq, to_seq,
// since, until (RFC 3339), and limit.
func (a *API) handleQueryEvents(w http.ResponseWriter, r *http.Request) {
	coord, ok := a.coordinator(w, r)
	if !ok {
		return
	}

	filter, err := filterFromParams(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	events, err := coord.QueryEvents(r.Context(), filter)
	if err != nil {
		a.logger.Error("event query failed", "room", coord.ID(), "error", err)
		http.Error(w, "failed to query events", http.StatusInternalServerError)
		return
	}

	currency := coord.Room().Currency
	resp := make([]loggedEventResponse, len(events))
	for i, ev := range events {
		var shares map[string]string
		if len(ev.Shares) > 0 {
			shares = make(map[string]string, len(ev.Shares))
			for id, s := range ev.Shares {
				shares[string(id)] = money.Format(s, currency)
			}
		}
		resp[i] = loggedEventResponse{
			Seq:    ev.Seq,
			Kind:   string(ev.Kind),
			Actor:  string(ev.Actor),
			Amount: money.Format(ev.Amount, currency),
			Policy: string(ev.Policy),
			Shares: shares,
			Note:   ev.Note,
			At:     ev.At,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func filterFromParams(params url.Values) (query.Filter, error) {
	var preds []query.Predicate

	if kind := params.Get("kind"); kind != "" {
		preds = append(preds, query.KindIs{Kind: kind})
	}
	if actor := params.Get("actor"); actor != "" {
		preds = append(preds, query.ActorIs{Actor: actor})
	}
	if raw := params.Get("from_seq"); raw != "" {
		seq, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return query.Filter{}, fmt.Errorf("from_seq must be an integer")
		}
		preds = append(preds, query.SeqAtLeast{Seq: seq})
	}
	if raw := params.Get("to_seq"); raw != "" {
		seq, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return query.Filter{}, fmt.Errorf("to_seq must be an integer")
		}
		preds = append(preds, query.SeqAtMost{Seq: seq})
	}
	if raw := params.Get("since"); raw != "" {
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return query.Filter{}, fmt.Errorf("since must be RFC 3339")
		}
		preds = append(preds, query.Since{At: at})
	}
	if raw := params.Get("until"); raw != "" {
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return query.Filter{}, fmt.Errorf("until must be RFC 3339")
		}
		preds = append(preds, query.Until{At: at})
	}

	f := query.Filter{}
	if raw := params.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return query.Filter{}, fmt.Errorf("limit must be an integer")
		}
		f.Limit = limit
	}

	switch len(preds) {
	case 0:
	case 1:
		f.Where = preds[0]
	default:
		f.Where = query.And{Predicates: preds}
	}

	if err := query.Validate(f); err != nil {
		return query.Filter{}, err
	}
	return f, nil
}

func (a *API) handleMarkSettled(w http.ResponseWriter, r *http.Request) {
	coord, ok := a.coordinator(w, r)
	if !ok {
		return
	}
	if err := coord.MarkSettled(r.Context()); err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roomToResponse(coord.Room()))
}

func (a *API) handleArchive(w http.ResponseWriter, r *http.Request) {
	coord, ok := a.coordinator(w, r)
	if !ok {
		return
	}
	if err := coord.Archive(r.Context()); err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roomToResponse(coord.Room()))
}

func (a *API) handlePredictSpend(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	estimated, err := money.Parse(req.Estimated, a.config.Currency)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	result, err := a.predictor.Predict(r.Context(), predict.Request{
		Date:      date,
		Category:  req.Category,
		Estimated: estimated,
	})
	if err != nil {
		a.logger.Error("prediction failed", "error", err)
		http.Error(w, "prediction unavailable", http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, predictResponse{
		PredictedAmount: money.Format(result.PredictedAmount, a.config.Currency),
		Label:           string(result.Label),
		Confidence:      result.Confidence,
	})
}

// coordinator resolves the {room_id} path variable, writing a 404 on
// unknown rooms.
func (a *API) coordinator(w http.ResponseWriter, r *http.Request) (*room.Coordinator, bool) {
	roomID := mux.Vars(r)["room_id"]
	coord, err := a.rooms.Room(r.Context(), roomID)
	if err != nil {
		if room.IsRoomNotFound(err) {
			http.Error(w, "room not found", http.StatusNotFound)
		} else {
			a.logger.Error("room lookup failed", "room", roomID, "error", err)
			http.Error(w, "failed to load room", http.StatusInternalServerError)
		}
		return nil, false
	}
	return coord, true
}

// writeDomainError maps domain errors to HTTP codes: invalid events are
// the caller's fault (422), closed rooms are a state conflict (409).
func (a *API) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case ledger.IsInvalidEvent(err):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case room.IsRoomClosed(err):
		http.Error(w, err.Error(), http.StatusConflict)
	case room.IsRoomNotFound(err):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		var se *room.StateError
		if errors.As(err, &se) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		a.logger.Error("request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func roomToResponse(rm ledger.Room) roomResponse {
	resp := roomResponse{
		ID:           rm.ID,
		Name:         rm.Name,
		Currency:     rm.Currency,
		Status:       string(rm.Status),
		CreatedAt:    rm.CreatedAt,
		Participants: make([]participantPayload, 0, len(rm.Participants)),
	}
	// Join order is load-bearing (remainder and pool allocation follow
	// it), so the response preserves it rather than sorting.
	for _, p := range rm.Participants {
		if !p.Active {
			continue
		}
		resp.Participants = append(resp.Participants, participantPayload{
			ID:     string(p.ID),
			Name:   p.Name,
			Weight: p.Weight,
		})
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
