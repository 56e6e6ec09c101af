package identity

import (
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("IdentityRecord", func() {
	Describe("RecordFromFields", func() {
		It("should keep values in column order", func() {
			record, err := RecordFromFields(validFields)
			Expect(err).NotTo(HaveOccurred())
			Expect(record.FirstName).To(Equal("محمد"))
			Expect(record.NationalID).To(Equal("1020304050"))
			Expect(record.VehicleType).To(Equal("نقل ثقيل"))
			Expect(record.Fields()).To(Equal(validFields))
		})

		It("rejects a row with the wrong number of values", func() {
			_, err := RecordFromFields(validFields[:9])
			Expect(errors.Is(err, ErrFieldCount)).To(BeTrue())
		})
	})

	Describe("JSON encoding", func() {
		It("should use the Arabic labels as keys", func() {
			record, err := RecordFromFields(validFields)
			Expect(err).NotTo(HaveOccurred())
			data, err := json.Marshal(record)
			Expect(err).NotTo(HaveOccurred())

			var decoded map[string]string
			Expect(json.Unmarshal(data, &decoded)).To(Succeed())
			Expect(decoded).To(HaveLen(len(Columns)))
			for i, key := range Columns {
				Expect(decoded).To(HaveKeyWithValue(key, validFields[i]))
			}
		})

		It("should write restrictions under the same key it reads", func() {
			record := &IdentityRecord{Restrictions: "نظارة طبية"}
			data, err := json.Marshal(record)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`"القيود":"نظارة طبية"`))
			Expect(string(data)).NotTo(ContainSubstring("نوع القيد"))

			parsed, err := ParseRecord(string(data))
			Expect(err).NotTo(HaveOccurred())
			Expect(parsed.Restrictions).To(Equal("نظارة طبية"))
		})
	})

	Describe("ParseRecord", func() {
		var (
			text   string
			record *IdentityRecord
			err    error
		)

		JustBeforeEach(func() {
			record, err = ParseRecord(text)
		})

		When("the text is a fenced record", func() {
			BeforeEach(func() {
				text = validReply
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should keep numeric values as their literal text", func() {
				Expect(record.Age).To(Equal("41"))
			})

			It("should read every column", func() {
				Expect(record.Fields()).To(Equal(validFields))
			})
		})

		When("fields are missing or null", func() {
			BeforeEach(func() {
				text = `{"الاسم الأول": "سعيد", "العمر": null}`
			})

			It("should render them as empty strings", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(record.FirstName).To(Equal("سعيد"))
				Expect(record.Age).To(BeEmpty())
				Expect(record.NationalID).To(BeEmpty())
			})
		})

		When("the text is the failure sentinel", func() {
			BeforeEach(func() {
				text = "extraction unreadable"
			})

			It("returns an unreadable error", func() {
				Expect(errors.Is(err, ErrUnreadable)).To(BeTrue())
				Expect(record).To(BeNil())
			})
		})

		When("the text is a JSON array", func() {
			BeforeEach(func() {
				text = `[{"الاسم الأول": "سعيد"}]`
			})

			It("returns an unreadable error", func() {
				Expect(errors.Is(err, ErrUnreadable)).To(BeTrue())
			})
		})

		When("the text holds two objects", func() {
			BeforeEach(func() {
				text = `{"العمر": "30"} {"العمر": "31"}`
			})

			It("returns an unreadable error", func() {
				Expect(errors.Is(err, ErrUnreadable)).To(BeTrue())
			})
		})

		When("the text is JSON null", func() {
			BeforeEach(func() {
				text = "null"
			})

			It("returns an unreadable error", func() {
				Expect(errors.Is(err, ErrUnreadable)).To(BeTrue())
			})
		})
	})
})
