package identity_test

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
	"go.etcd.io/bbolt"

	"github.com/zombor/driver-intake/internal/extraction"
	"github.com/zombor/driver-intake/internal/identity"
	"github.com/zombor/driver-intake/internal/permit"
)

const modelReply = "```json\n" + `{
  "صورة الوثيقة": "",
  "الاسم الأول": "خالد",
  "الاسم الثاني": "سعد",
  "الاسم الثالث": "ناصر",
  "الاسم الأخير": "الدوسري",
  "رقم الهوية": "1122334455",
  "العمر": "38",
  "القيود": null,
  "حالة سريان الرخصة": "منتهي",
  "النوع": "نقل خفيف"
}` + "\n```"

var _ = Describe("Integration", func() {
	var (
		storagePath string
		db          *bbolt.DB
		inference   *ghttp.Server
		app         *ghttp.Server
	)

	BeforeEach(func() {
		tempDir := GinkgoT().TempDir()
		storagePath = filepath.Join(tempDir, "documents")

		var err error
		db, err = identity.OpenDB(filepath.Join(tempDir, "test.db"))
		Expect(err).NotTo(HaveOccurred())
		store, err := identity.NewBoltStore(db)
		Expect(err).NotTo(HaveOccurred())
		registry, err := permit.NewBoltDB(db)
		Expect(err).NotTo(HaveOccurred())
		files, err := identity.NewLocalStorage(storagePath)
		Expect(err).NotTo(HaveOccurred())

		// Fake OpenAI-compatible endpoint
		inference = ghttp.NewServer()
		inference.AppendHandlers(ghttp.CombineHandlers(
			ghttp.VerifyRequest(http.MethodPost, "/v1/chat/completions"),
			ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{
				"id":      "chatcmpl-1",
				"object":  "chat.completion",
				"created": 1,
				"model":   "gpt-4o",
				"choices": []map[string]any{{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]any{"role": "assistant", "content": modelReply},
				}},
			}),
		))
		extractor, err := extraction.NewOpenAI("test-key", inference.URL()+"/v1/", "")
		Expect(err).NotTo(HaveOccurred())

		service := identity.NewService(store, files, extractor, extraction.NewBuilder("", 0), 5*time.Second)
		server := identity.NewServer(service, identity.Config{ClearOnEntry: true})
		permit.NewHandlers(permit.NewService(registry, files)).RegisterRoutes(server)

		app = ghttp.NewServer()
		for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete} {
			app.RouteToHandler(method, regexp.MustCompile(`.*`), server.ServeHTTP)
		}
	})

	AfterEach(func() {
		app.Close()
		inference.Close()
		db.Close()
	})

	send := func(method, path, contentType string, body io.Reader) *http.Response {
		req, err := http.NewRequest(method, app.URL()+path, body)
		Expect(err).NotTo(HaveOccurred())
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(resp.Body.Close)
		return resp
	}

	multipartBody := func(field, filename string, data []byte, values map[string]string) (*bytes.Buffer, string) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		for k, v := range values {
			Expect(writer.WriteField(k, v)).To(Succeed())
		}
		part, err := writer.CreateFormFile(field, filename)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(writer.Close()).To(Succeed())
		return body, writer.FormDataContentType()
	}

	readTable := func(resp *http.Response) identity.Table {
		var table identity.Table
		Expect(json.NewDecoder(resp.Body).Decode(&table)).To(Succeed())
		return table
	}

	It("should extract, edit, register, request a permit and clear", func() {
		var frame bytes.Buffer
		Expect(png.Encode(&frame, image.NewRGBA(image.Rect(0, 0, 32, 24)))).To(Succeed())

		// --- Step 1: Extraction ---
		body, contentType := multipartBody("file", "capture.png", frame.Bytes(), nil)
		resp := send(http.MethodPost, "/api/extractions", contentType, body)
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))
		Expect(inference.ReceivedRequests()).To(HaveLen(1))

		_, err := os.Stat(filepath.Join(storagePath, "document.jpg"))
		Expect(err).NotTo(HaveOccurred())

		// --- Step 2: Editor load ---
		table := readTable(send(http.MethodGet, "/api/record", "", nil))
		Expect(table.Columns).To(Equal(identity.Columns))
		Expect(table.Rows).To(HaveLen(1))
		row := table.Rows[0]
		Expect(row[1]).To(Equal("خالد"))
		Expect(row[5]).To(Equal("1122334455"))
		Expect(row[7]).To(BeEmpty())
		Expect(row[8]).To(Equal(extraction.LicenseExpired))

		// --- Step 3: Save edits ---
		row[7] = extraction.NoRestrictions
		payload, err := json.Marshal(map[string][]string{"fields": row})
		Expect(err).NotTo(HaveOccurred())
		resp = send(http.MethodPut, "/api/record", "application/json", bytes.NewReader(payload))
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		table = readTable(send(http.MethodGet, "/api/record", "", nil))
		Expect(table.Rows).To(Equal([][]string{row}))

		// --- Step 4: Register the driver and request a permit ---
		body, contentType = multipartBody("photo", "driver.png", frame.Bytes(), map[string]string{
			"national_id": row[5],
			"name":        row[1] + " " + row[4],
		})
		resp = send(http.MethodPost, "/api/drivers", contentType, body)
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		tomorrow := time.Now().AddDate(0, 0, 1).Format("2006-01-02")
		permitBody, err := json.Marshal(permit.PermitRequest{Date: tomorrow, Route: "الرياض - الدمام"})
		Expect(err).NotTo(HaveOccurred())
		resp = send(http.MethodPost, "/api/drivers/1122334455/permits", "application/json", bytes.NewReader(permitBody))
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		var permits []permit.Permit
		resp = send(http.MethodGet, "/api/drivers/1122334455/permits", "", nil)
		Expect(json.NewDecoder(resp.Body).Decode(&permits)).To(Succeed())
		Expect(permits).To(HaveLen(1))
		Expect(permits[0].DriverName).To(Equal("خالد الدوسري"))

		// --- Step 5: Delete ---
		resp = send(http.MethodDelete, "/api/record", "", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

		table = readTable(send(http.MethodGet, "/api/record", "", nil))
		Expect(table.Rows).To(BeEmpty())
		_, err = os.Stat(filepath.Join(storagePath, "document.jpg"))
		Expect(os.IsNotExist(err)).To(BeTrue())

		// The registry is independent of the record slot
		resp = send(http.MethodGet, "/api/drivers/1122334455", "", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
	})

	It("should clear the slot when the capture page is opened", func() {
		var frame bytes.Buffer
		Expect(png.Encode(&frame, image.NewRGBA(image.Rect(0, 0, 8, 8)))).To(Succeed())
		body, contentType := multipartBody("file", "capture.png", frame.Bytes(), nil)
		Expect(send(http.MethodPost, "/api/extractions", contentType, body).StatusCode).To(Equal(http.StatusCreated))

		resp := send(http.MethodGet, "/", "", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		table := readTable(send(http.MethodGet, "/api/record", "", nil))
		Expect(table.Rows).To(BeEmpty())
	})
})
