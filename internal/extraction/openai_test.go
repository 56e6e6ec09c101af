package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("OpenAI", func() {
	var (
		server    *ghttp.Server
		extractor *OpenAI
		req       *Request
		reply     string
		err       error
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		var newErr error
		extractor, newErr = NewOpenAI("test-key", server.URL()+"/v1/", "")
		Expect(newErr).NotTo(HaveOccurred())

		req, newErr = NewBuilder("", 0).Build(pngFrame(10, 10), "image/png", time.Now())
		Expect(newErr).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		reply, err = extractor.Extract(context.Background(), req)
	})

	When("the API answers", func() {
		var body map[string]any

		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/v1/chat/completions"),
				ghttp.VerifyHeaderKV("Authorization", "Bearer test-key"),
				func(w http.ResponseWriter, r *http.Request) {
					raw, readErr := io.ReadAll(r.Body)
					Expect(readErr).NotTo(HaveOccurred())
					Expect(json.Unmarshal(raw, &body)).To(Succeed())
				},
				ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{
					"id":      "chatcmpl-1",
					"object":  "chat.completion",
					"created": 1,
					"model":   "gpt-4o",
					"choices": []map[string]any{{
						"index":         0,
						"finish_reason": "stop",
						"message": map[string]any{
							"role":    "assistant",
							"content": "```json\n{\"العمر\": \"41\"}\n```",
						},
					}},
				}),
			))
		})

		It("should return the reply text verbatim", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(reply).To(Equal("```json\n{\"العمر\": \"41\"}\n```"))
		})

		It("should default to the gpt-4o model", func() {
			Expect(body).To(HaveKeyWithValue("model", "gpt-4o"))
		})

		It("should send a system message and a user message with text and image", func() {
			messages, ok := body["messages"].([]any)
			Expect(ok).To(BeTrue())
			Expect(messages).To(HaveLen(2))

			user := messages[1].(map[string]any)
			Expect(user).To(HaveKeyWithValue("role", "user"))
			parts := user["content"].([]any)
			Expect(parts).To(HaveLen(2))
			Expect(parts[0].(map[string]any)).To(HaveKeyWithValue("type", "text"))
			image := parts[1].(map[string]any)["image_url"].(map[string]any)
			Expect(image["url"]).To(HavePrefix("data:image/jpeg;base64,"))
		})
	})

	When("the API returns an error status", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, `{"error":{"message":"boom"}}`))
		})

		It("returns an inference error", func() {
			Expect(errors.Is(err, ErrInference)).To(BeTrue())
		})
	})

	When("the API returns no choices", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{
				"id":      "chatcmpl-2",
				"object":  "chat.completion",
				"model":   "gpt-4o",
				"choices": []any{},
			}))
		})

		It("returns an inference error", func() {
			Expect(errors.Is(err, ErrInference)).To(BeTrue())
		})
	})
})

var _ = Describe("NewOpenAI", func() {
	It("requires an API key", func() {
		_, err := NewOpenAI("", "", "")
		Expect(err).To(HaveOccurred())
	})

	It("reports the model in its name", func() {
		extractor, err := NewOpenAI("key", "", "gpt-4o-mini")
		Expect(err).NotTo(HaveOccurred())
		Expect(extractor.Name()).To(Equal("openai/gpt-4o-mini"))
	})
})
