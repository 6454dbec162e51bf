package pricing

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/toko-discount/internal/common"
	"github.com/noah-isme/toko-discount/internal/discount"
	"github.com/noah-isme/toko-discount/internal/security"
)

const computedMessage = "Discounts applied successfully"

// Handler exposes the discount endpoints.
type Handler struct {
	service *Service
	binder  *Binder
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service   *Service
	Validator *validator.Validate
}

// NewHandler constructs a Handler. The discount enum validations are
// registered on the given validator, or on a fresh one when nil.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service, binder: NewBinder(cfg.Validator)}
}

// Binder checks compute requests against the request schema and converts
// them into core values. The HTTP handler and the offline tool share it.
type Binder struct {
	validate *validator.Validate
}

// NewBinder registers the discount validations on v, or on a fresh validator
// when nil, and returns a Binder using it.
func NewBinder(v *validator.Validate) *Binder {
	if v == nil {
		v = validator.New(validator.WithRequiredStructEnabled())
	}
	RegisterValidations(v)
	return &Binder{validate: v}
}

// RegisterValidations installs json field naming and the discount enum tags
// (product_category, discount_source, discount_mechanism) on v.
func RegisterValidations(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("product_category", func(fl validator.FieldLevel) bool {
		return discount.ProductCategory(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("discount_source", func(fl validator.FieldLevel) bool {
		_, ok := discount.AllowedPairs[discount.Source(fl.Field().String())]
		return ok
	})
	_ = v.RegisterValidation("discount_mechanism", func(fl validator.FieldLevel) bool {
		m := discount.Mechanism(fl.Field().String())
		for _, allowed := range discount.AllowedPairs {
			for _, candidate := range allowed {
				if candidate == m {
					return true
				}
			}
		}
		return false
	})
}

// ComputeRequest is the {cartItems, discounts} document accepted by the
// compute endpoint.
type ComputeRequest struct {
	CartItems []CartItemRequest `json:"cartItems" validate:"required,min=1,dive"`
	Discounts []DiscountRequest `json:"discounts" validate:"required,dive"`
}

// CartItemRequest is one unvalidated cart line.
type CartItemRequest struct {
	Name            *string  `json:"name" validate:"required"`
	UnitPrice       *float64 `json:"unitPrice" validate:"required,gte=1"`
	Quantity        *int     `json:"quantity" validate:"omitempty,gte=1"`
	ProductCategory string   `json:"productCategory" validate:"required,product_category"`
}

// DiscountRequest is one unvalidated discount. Context is decoded once the
// mechanism is known.
type DiscountRequest struct {
	Source    string          `json:"source" validate:"required,discount_source"`
	Mechanism string          `json:"mechanism" validate:"required,discount_mechanism"`
	Context   json.RawMessage `json:"context" validate:"required"`
}

type contextRequest interface {
	toContext() discount.Context
}

type fixedContextRequest struct {
	Amount *float64 `json:"amount" validate:"required,gte=1"`
}

type percentageContextRequest struct {
	Percentage *float64 `json:"percentage" validate:"required,gte=1,lte=100"`
}

type categoryPercentageContextRequest struct {
	Percentage      *float64 `json:"percentage" validate:"required,gte=1,lte=100"`
	ProductCategory string   `json:"productCategory" validate:"required,product_category"`
}

type pointsContextRequest struct {
	Points *float64 `json:"points" validate:"required,gte=1"`
}

type thresholdContextRequest struct {
	EveryX *float64 `json:"everyX" validate:"required,gte=1"`
	GetY   *float64 `json:"getY" validate:"required,gte=1"`
}

func (c *fixedContextRequest) toContext() discount.Context {
	return discount.FixedContext{Amount: *c.Amount}
}

func (c *percentageContextRequest) toContext() discount.Context {
	return discount.PercentageContext{Percentage: *c.Percentage}
}

func (c *categoryPercentageContextRequest) toContext() discount.Context {
	return discount.CategoryPercentageContext{Percentage: *c.Percentage, ProductCategory: discount.ProductCategory(c.ProductCategory)}
}

func (c *pointsContextRequest) toContext() discount.Context {
	return discount.PointsContext{Points: *c.Points}
}

func (c *thresholdContextRequest) toContext() discount.Context {
	return discount.ThresholdContext{EveryX: *c.EveryX, GetY: *c.GetY}
}

func newContextRequest(m discount.Mechanism) contextRequest {
	switch m {
	case discount.MechanismFixed:
		return &fixedContextRequest{}
	case discount.MechanismPercentage:
		return &percentageContextRequest{}
	case discount.MechanismPercentageByCategory:
		return &categoryPercentageContextRequest{}
	case discount.MechanismUsePoint:
		return &pointsContextRequest{}
	case discount.MechanismEveryXGetY:
		return &thresholdContextRequest{}
	default:
		return nil
	}
}

// Compute handles POST /api/v1/discounts/compute.
func (h *Handler) Compute(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "discount service not configured", nil)
		return
	}
	var req ComputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteError(w, decodeError(err))
		return
	}
	items, discounts, fields := h.binder.Bind(req)
	if len(fields) > 0 {
		common.WriteError(w, common.ValidationError(fields))
		return
	}

	quote, err := h.service.Quote(r.Context(), items, discounts)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Success(w, http.StatusOK, quote, computedMessage)
}

// MechanismInfo describes one mechanism a client may submit.
type MechanismInfo struct {
	Mechanism discount.Mechanism `json:"mechanism"`
	Source    discount.Source    `json:"source"`
	Priority  int                `json:"priority"`
}

// Mechanisms handles GET /api/v1/discounts/mechanisms.
func (h *Handler) Mechanisms(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "discount service not configured", nil)
		return
	}
	sourceOf := map[discount.Mechanism]discount.Source{}
	for source, mechanisms := range discount.AllowedPairs {
		for _, m := range mechanisms {
			sourceOf[m] = source
		}
	}
	registered := h.service.Engine().Registry.Mechanisms()
	out := make([]MechanismInfo, 0, len(registered))
	for _, m := range registered {
		source, ok := sourceOf[m]
		if !ok {
			continue
		}
		out = append(out, MechanismInfo{Mechanism: m, Source: source, Priority: discount.Priority(source)})
	}
	common.Success(w, http.StatusOK, out, "")
}

// Bind validates req and returns the cart and discounts it describes. Any
// schema violation is reported as field errors and no core values are returned.
func (b *Binder) Bind(req ComputeRequest) ([]discount.CartItem, []discount.Discount, []common.FieldError) {
	if err := b.validate.Struct(req); err != nil {
		return nil, nil, fieldErrors(err, "")
	}

	items := make([]discount.CartItem, 0, len(req.CartItems))
	for _, it := range req.CartItems {
		qty := 1
		if it.Quantity != nil {
			qty = *it.Quantity
		}
		items = append(items, discount.CartItem{
			Name:            *it.Name,
			UnitPrice:       *it.UnitPrice,
			Quantity:        qty,
			ProductCategory: discount.ProductCategory(it.ProductCategory),
		})
	}

	var fields []common.FieldError
	discounts := make([]discount.Discount, 0, len(req.Discounts))
	for i, d := range req.Discounts {
		prefix := fmt.Sprintf("discounts[%d]", i)
		source, mechanism := discount.Source(d.Source), discount.Mechanism(d.Mechanism)
		if !discount.PairAllowed(source, mechanism) {
			fields = append(fields, common.FieldError{
				Path:    prefix + ".mechanism",
				Message: fmt.Sprintf("mechanism %s is not available for source %s", mechanism, source),
			})
			continue
		}
		if discount.IsEmptyContextJSON(d.Context) {
			fields = append(fields, common.FieldError{Path: prefix + ".context", Message: discount.EmptyContextReason})
			continue
		}
		cr := newContextRequest(mechanism)
		if cr == nil {
			fields = append(fields, common.FieldError{Path: prefix + ".mechanism", Message: "unsupported mechanism"})
			continue
		}
		if err := json.Unmarshal(d.Context, cr); err != nil {
			fields = append(fields, common.FieldError{Path: prefix + ".context", Message: typeMessage(err)})
			continue
		}
		if err := b.validate.Struct(cr); err != nil {
			fields = append(fields, fieldErrors(err, prefix+".context")...)
			continue
		}
		discounts = append(discounts, discount.Discount{Source: source, Mechanism: mechanism, Context: cr.toContext()})
	}
	if len(fields) > 0 {
		return nil, nil, fields
	}
	return items, discounts, nil
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	code := ErrorCode(err)
	if code == codeInternal {
		common.WriteError(w, err)
		return
	}
	common.WriteError(w, common.NewAppError(code, err.Error(), http.StatusBadRequest, err))
}

func decodeError(err error) error {
	if security.IsTooLarge(err) {
		return security.TooLargeError(err)
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return common.ValidationError([]common.FieldError{{Path: typeErr.Field, Message: typeMessage(err)}})
	}
	return common.NewAppError(common.CodeBadRequest, "invalid payload", http.StatusBadRequest, err)
}

func typeMessage(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("expected %s, received %s", typeErr.Type.Kind(), typeErr.Value)
	}
	return "invalid payload"
}

func fieldErrors(err error, prefix string) []common.FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []common.FieldError{{Path: prefix, Message: err.Error()}}
	}
	out := make([]common.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		_, path, _ := strings.Cut(fe.Namespace(), ".")
		if prefix != "" {
			path = prefix + "." + path
		}
		out = append(out, common.FieldError{Path: path, Message: tagMessage(fe)})
	}
	return out
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Required"
	case "min":
		if fe.Field() == "cartItems" {
			return "At least one cart item is required"
		}
		return "Must contain at least " + fe.Param() + " element(s)"
	case "gte":
		return "Number must be greater than or equal to " + fe.Param()
	case "lte":
		return "Number must be less than or equal to " + fe.Param()
	case "product_category":
		return "Invalid enum value. Expected " + joinEnum(discount.Categories)
	case "discount_source":
		return "Invalid discount source"
	case "discount_mechanism":
		return "Invalid discount mechanism"
	default:
		return "Invalid value"
	}
}

func joinEnum[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = "'" + string(v) + "'"
	}
	return strings.Join(parts, " | ")
}
