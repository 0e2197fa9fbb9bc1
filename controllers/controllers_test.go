package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fashalt/fashaltbackend/apperr"
	"github.com/fashalt/fashaltbackend/middleware"
	"github.com/fashalt/fashaltbackend/models"
	"github.com/fashalt/fashaltbackend/services"
	"github.com/fashalt/fashaltbackend/utils"
	"github.com/gin-gonic/gin"
	"github.com/tealeg/xlsx"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const secret = "controllers-test"

func init() { gin.SetMode(gin.TestMode) }

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	return r
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return body
}

func bearer(t *testing.T, id bson.ObjectID, role models.Role) string {
	t.Helper()
	tok, err := utils.GenerateAccessToken(secret, id.Hex(), string(role), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + tok
}

// Unimplemented methods panic through the nil embedded interface.
type stubCatalog struct {
	Catalog
	params  services.CatalogParams
	page    *models.Page[models.Product]
	created services.ProductInput
	rows    []services.ExportRow
}

func (s *stubCatalog) Query(_ context.Context, p services.CatalogParams) (*models.Page[models.Product], error) {
	s.params = p
	return s.page, nil
}

func (s *stubCatalog) Create(_ context.Context, in services.ProductInput, _ []*multipart.FileHeader) (*models.Product, error) {
	s.created = in
	return &models.Product{ID: bson.NewObjectID(), Name: in.Name}, nil
}

func (s *stubCatalog) ExportRows(context.Context) ([]services.ExportRow, error) {
	return s.rows, nil
}

func TestGetProductsForwardsQuery(t *testing.T) {
	catalog := &stubCatalog{page: &models.Page[models.Product]{
		Items:      []models.Product{{Name: "Linen Shirt", Price: 120}},
		Total:      9,
		TotalPages: 2,
	}}
	r := newEngine()
	r.GET("/product", GetProducts(catalog))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/product?price=100-200&sort=price-desc&page=2&limit=8&forwhat=mens&sizes=M,L", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	p := catalog.params
	if p.Price != "100-200" || p.Sort != "price-desc" || p.Page != 2 || p.Limit != 8 || p.ForWhat != "mens" || p.Sizes != "M,L" {
		t.Errorf("params = %+v", p)
	}
	body := decode(t, w)
	if body["totalProducts"] != float64(9) || body["totalPage"] != float64(2) {
		t.Errorf("body = %v", body)
	}
	if items := body["products"].([]any); len(items) != 1 {
		t.Errorf("products = %v", items)
	}
}

func multipartBody(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf, mw.FormDataContentType()
}

func TestAddProductPayload(t *testing.T) {
	catalog := &stubCatalog{}
	r := newEngine()
	r.POST("/product/create", AddProduct(catalog, utils.NewImageValidator(1)))

	tests := []struct {
		name    string
		fields  map[string]string
		status  int
		message string
	}{
		{"missing data", map[string]string{}, http.StatusBadRequest, "missing data"},
		{"bad json", map[string]string{"data": "{"}, http.StatusBadRequest, "invalid data json"},
		{"missing name", map[string]string{"data": `{"description":"d","price":10,"brand":"b","category":"Shirts","sizes":["M"]}`}, http.StatusBadRequest, "Name is required"},
		{"ok", map[string]string{"data": `{"name":"Oxford","description":"d","price":10,"brand":"b","category":"Shirts","sizes":["M"],"stock":3}`}, http.StatusCreated, "Product Created Successfully"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, ct := multipartBody(t, tt.fields)
			req := httptest.NewRequest(http.MethodPost, "/product/create", buf)
			req.Header.Set("Content-Type", ct)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.status, w.Body)
			}
			if got := decode(t, w)["message"]; got != tt.message {
				t.Errorf("message = %v, want %q", got, tt.message)
			}
		})
	}
	if catalog.created.Name != "Oxford" || catalog.created.Stock != 3 || catalog.created.Category != "Shirts" {
		t.Errorf("created = %+v", catalog.created)
	}
}

func TestExportProducts(t *testing.T) {
	catalog := &stubCatalog{rows: []services.ExportRow{{
		Product:      models.Product{ID: bson.NewObjectID(), Name: "Denim Jacket", Price: 89.5, Sizes: []models.Size{models.SizeM}},
		CategoryName: "Jackets",
	}}}
	r := newEngine()
	r.GET("/product/export", ExportProducts(catalog))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/product/export", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("content type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "products-") {
		t.Errorf("content disposition = %q", cd)
	}
	book, err := xlsx.OpenBinary(w.Body.Bytes())
	if err != nil {
		t.Fatalf("OpenBinary: %v", err)
	}
	sheet := book.Sheets[0]
	if len(sheet.Rows) != 2 || sheet.Rows[1].Cells[1].Value != "Denim Jacket" {
		t.Errorf("unexpected sheet contents")
	}
}

type stubAccounts struct {
	Accounts
	user *models.User
}

func (s *stubAccounts) Login(_ context.Context, email, password string) (*services.AuthResult, error) {
	if email != s.user.Email || password != "secret#1" {
		return nil, apperr.Auth("Invalid Email or Password")
	}
	return &services.AuthResult{User: s.user, Token: "signed-token"}, nil
}

func TestLoginSetsCookie(t *testing.T) {
	accounts := &stubAccounts{user: &models.User{ID: bson.NewObjectID(), Email: "asha@example.com", PasswordHash: "hash"}}
	cookie := SessionCookie{TTL: time.Hour, Secure: true}
	r := newEngine()
	r.POST("/user/login", Login(accounts, cookie))
	r.POST("/user/logout", Logout(cookie))

	post := func(path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := post("/user/login", `{"email":"asha@example.com","password":"secret#1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	set := w.Header().Get("Set-Cookie")
	if !strings.Contains(set, middleware.TokenCookie+"=signed-token") || !strings.Contains(set, "HttpOnly") {
		t.Errorf("Set-Cookie = %q", set)
	}
	if strings.Contains(w.Body.String(), "hash") {
		t.Error("password hash leaked in response")
	}

	w = post("/user/login", `{"email":"asha@example.com","password":"wrong#12"}`)
	if w.Code != http.StatusUnauthorized || decode(t, w)["message"] != "Invalid Email or Password" {
		t.Errorf("wrong password: %d %s", w.Code, w.Body)
	}

	w = post("/user/login", `{"email":"not-an-email","password":"secret#1"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad email: status = %d", w.Code)
	}

	w = post("/user/logout", "")
	if set := w.Header().Get("Set-Cookie"); !strings.Contains(set, "Max-Age=0") {
		t.Errorf("logout Set-Cookie = %q", set)
	}
}

type stubOrders struct {
	Orders
	req   services.Requester
	in    services.CreateOrderInput
	err   error
	page  int
	limit int
}

func (s *stubOrders) Create(_ context.Context, req services.Requester, in services.CreateOrderInput) (*services.CreateOrderResult, error) {
	s.req, s.in = req, in
	if s.err != nil {
		return nil, s.err
	}
	return &services.CreateOrderResult{
		Order:          &models.Order{OrderID: "ORD-1", Total: 105},
		InvoiceSent:    false,
		InvoiceMessage: "Order placed, but the invoice email could not be sent",
	}, nil
}

func (s *stubOrders) MyOrders(_ context.Context, _ bson.ObjectID, page, limit int) (*models.Page[models.Order], error) {
	s.page, s.limit = page, limit
	if page < 1 {
		return nil, apperr.Validation("Invalid page number")
	}
	return &models.Page[models.Order]{Items: []models.Order{}, Total: 0}, nil
}

func orderEngine(orders Orders) *gin.Engine {
	r := newEngine()
	g := r.Group("/order", middleware.AuthMiddleware(secret))
	g.POST("/create", CreateOrder(orders))
	g.GET("/myorders", GetMyOrders(orders))
	return r
}

func TestCreateOrderHandler(t *testing.T) {
	orders := &stubOrders{}
	r := orderEngine(orders)
	buyer := bson.NewObjectID()
	body := `{"items":[{"productId":"p1","quantity":2,"size":"M"}],"paymentMethod":"COD",
		"shippingAddress":{"street":"1 Main","city":"Pune","state":"MH","zipCode":"411001","country":"IN"},
		"subtotal":100,"tax":5,"total":105}`

	send := func(auth string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/order/create", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	if w := send(""); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: status = %d", w.Code)
	}

	w := send(bearer(t, buyer, models.RoleUser))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	if orders.req.ID != buyer || len(orders.in.Items) != 1 || orders.in.Items[0].Quantity != 2 {
		t.Errorf("forwarded = %+v / %+v", orders.req, orders.in)
	}
	if orders.in.Subtotal == nil || *orders.in.Subtotal != 100 || orders.in.ShippingAddress.City != "Pune" {
		t.Errorf("amounts/address not forwarded: %+v", orders.in)
	}
	res := decode(t, w)
	if res["invoiceSent"] != false || res["invoiceMessage"] == "" {
		t.Errorf("invoice status missing: %v", res)
	}

	orders.err = apperr.InsufficientStock("Insufficient stock for Oxford")
	w = send(bearer(t, buyer, models.RoleUser))
	if w.Code != http.StatusBadRequest || decode(t, w)["message"] != "Insufficient stock for Oxford" {
		t.Errorf("stock failure: %d %s", w.Code, w.Body)
	}
}

func TestMyOrdersPaging(t *testing.T) {
	orders := &stubOrders{}
	r := orderEngine(orders)
	auth := bearer(t, bson.NewObjectID(), models.RoleUser)

	get := func(q string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/order/myorders"+q, nil)
		req.Header.Set("Authorization", auth)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	if w := get(""); w.Code != http.StatusOK || orders.page != 1 || orders.limit != services.DefaultOrderPageSize {
		t.Errorf("defaults: %d page=%d limit=%d", w.Code, orders.page, orders.limit)
	}
	if w := get("?page=abc"); w.Code != http.StatusBadRequest {
		t.Errorf("malformed page: status = %d", w.Code)
	}
}

type stubPayments struct{ Payments }

func (stubPayments) Verify(orderID, paymentID, signature string) error {
	if signature != "good" {
		return apperr.Validation("Payment verification failed. Invalid signature.")
	}
	return nil
}

func TestVerifyPaymentHandler(t *testing.T) {
	r := newEngine()
	r.POST("/payment/verify", VerifyPayment(stubPayments{}))

	tests := []struct {
		body   string
		status int
	}{
		{`{"razorpay_order_id":"o","razorpay_payment_id":"p","razorpay_signature":"good"}`, http.StatusOK},
		{`{"razorpay_order_id":"o","razorpay_payment_id":"p","razorpay_signature":"bad"}`, http.StatusBadRequest},
		{`{"razorpay_order_id":"o"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/payment/verify", strings.NewReader(tt.body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tt.status {
			t.Errorf("%s: status = %d, want %d", tt.body, w.Code, tt.status)
		}
	}
}
