package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/tournevent/sendcloud-bridge/internal/fulfillment"
	"github.com/tournevent/sendcloud-bridge/pkg/shipper"
	"go.uber.org/zap"
)

const maxRequestBytes = 1 << 20

type addressRequest struct {
	Name        string `json:"name" validate:"required"`
	Company     string `json:"company"`
	Line1       string `json:"line1" validate:"required"`
	HouseNumber string `json:"house_number"`
	Line2       string `json:"line2"`
	City        string `json:"city" validate:"required"`
	PostalCode  string `json:"postal_code" validate:"required"`
	CountryCode string `json:"country_code" validate:"required,len=2,alpha"`
	Phone       string `json:"phone"`
	Email       string `json:"email" validate:"omitempty,email"`
}

type createFulfillmentRequest struct {
	Provider         string         `json:"provider" validate:"required"`
	OrderNumber      string         `json:"order_number" validate:"required"`
	ShippingMethodID int64          `json:"shipping_method_id" validate:"gte=0"`
	Weight           float64        `json:"weight" validate:"gt=0"`
	RequestLabel     bool           `json:"request_label"`
	Address          addressRequest `json:"address"`
}

func (req *createFulfillmentRequest) toShipper() *shipper.CreateParcelRequest {
	return &shipper.CreateParcelRequest{
		Address: shipper.Address{
			Name:        req.Address.Name,
			Company:     req.Address.Company,
			Line1:       req.Address.Line1,
			HouseNumber: req.Address.HouseNumber,
			Line2:       req.Address.Line2,
			City:        req.Address.City,
			PostalCode:  req.Address.PostalCode,
			CountryCode: strings.ToUpper(req.Address.CountryCode),
			Phone:       req.Address.Phone,
			Email:       req.Address.Email,
		},
		Weight:           req.Weight,
		OrderNumber:      req.OrderNumber,
		ShippingMethodID: req.ShippingMethodID,
		RequestLabel:     req.RequestLabel,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleShippingMethods(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := &shipper.ShippingMethodsRequest{
		ToCountry:   strings.ToUpper(q.Get("to_country")),
		FromCountry: strings.ToUpper(q.Get("from_country")),
	}

	methods, err := s.service.ShippingOptions(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"shipping_methods": methods})
}

func (s *Server) handleCreateFulfillment(w http.ResponseWriter, r *http.Request) {
	var req createFulfillmentRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON: " + err.Error()})
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validationMessage(err)})
		return
	}

	f, err := s.service.CreateFulfillment(r.Context(), req.Provider, req.toShipper())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (s *Server) handleGetFulfillment(w http.ResponseWriter, r *http.Request) {
	provider, parcelID, ok := parcelParams(w, r)
	if !ok {
		return
	}
	f, err := s.service.GetFulfillment(r.Context(), provider, parcelID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	provider, parcelID, ok := parcelParams(w, r)
	if !ok {
		return
	}
	rec, err := s.service.Status(r.Context(), provider, parcelID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleCancelFulfillment(w http.ResponseWriter, r *http.Request) {
	provider, parcelID, ok := parcelParams(w, r)
	if !ok {
		return
	}
	result, err := s.service.CancelFulfillment(r.Context(), provider, parcelID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetLabel(w http.ResponseWriter, r *http.Request) {
	provider, parcelID, ok := parcelParams(w, r)
	if !ok {
		return
	}
	label, err := s.service.GetLabel(r.Context(), provider, parcelID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, label)
}

func parcelParams(w http.ResponseWriter, r *http.Request) (string, int64, bool) {
	provider := chi.URLParam(r, "provider")
	parcelID, err := strconv.ParseInt(chi.URLParam(r, "parcelID"), 10, 64)
	if err != nil || parcelID <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid parcel id"})
		return "", 0, false
	}
	return provider, parcelID, true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, shipper.ErrProviderNotFound), errors.Is(err, fulfillment.ErrStatusNotFound):
		status = http.StatusNotFound
	case shipper.IsInvalidData(err):
		status = http.StatusUnprocessableEntity
	}

	log := s.logger.Ctx(r.Context())
	if status == http.StatusInternalServerError {
		log.Error("Request failed", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		log.Info("Request rejected", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: shipper.Message(err)})
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return "Invalid request: " + strings.Join(msgs, "; ")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
