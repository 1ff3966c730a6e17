package transaction

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zenebe/receipt-analyzer/internal/parsing"
)

// multipartBody builds a multipart form with a single file field
func multipartBody(filename, content string) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	Expect(err).NotTo(HaveOccurred())
	_, err = io.WriteString(part, content)
	Expect(err).NotTo(HaveOccurred())
	Expect(writer.Close()).To(Succeed())
	return body, writer.FormDataContentType()
}

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		service     *Service
		server      *Server
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP)
	}

	BeforeEach(func() {
		db = newMockDB()
		service = NewService(db, parsing.NewParser(), newMockExporter())
		auth = BasicAuth{}
		server = NewServerWithMux(service, auth, http.NewServeMux())
		setupServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	Describe("handleIndex", func() {
		It("should return the HTML interface", func() {
			resp, err := http.Get(ghttpServer.URL() + "/")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring("Receipt Analyzer"))
		})
	})

	Describe("handleUploadDocument", func() {
		When("uploading a valid dump", func() {
			It("should persist and return the extracted transactions", func() {
				body, contentType := multipartBody("dump.txt",
					"FS No. 77\n01/02/2023\nBUYER'S TIN: 12345\n2 x *50.00\nCOLA *100.00\nTOTAL *100.00")
				resp, err := http.Post(ghttpServer.URL()+"/api/documents", contentType, body)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))

				var result struct {
					Document     *Document `json:"document"`
					Transactions []*Record `json:"transactions"`
				}
				Expect(json.NewDecoder(resp.Body).Decode(&result)).To(Succeed())
				Expect(result.Document.TransactionCount).To(Equal(1))
				Expect(result.Transactions).To(HaveLen(1))
				Expect(result.Transactions[0].Item).To(Equal("COLA"))
				Expect(db.records).To(HaveLen(1))
			})
		})

		When("no file is provided", func() {
			It("should return bad request", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/documents",
					"multipart/form-data; boundary=empty", bytes.NewBufferString("--empty--"))
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})

		When("the file is not a text dump", func() {
			It("should return bad request", func() {
				body, contentType := multipartBody("receipt.pdf", "%PDF-1.4")
				resp, err := http.Post(ghttpServer.URL()+"/api/documents", contentType, body)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})
	})

	Describe("handleZeroReceipts", func() {
		It("should report zero receipts without persisting", func() {
			body, contentType := multipartBody("dump.txt", "FS No. 41\nTOTAL *0.00\nITEM# 0")
			resp, err := http.Post(ghttpServer.URL()+"/api/zero-receipts", contentType, body)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var zero []parsing.ZeroReceipt
			Expect(json.NewDecoder(resp.Body).Decode(&zero)).To(Succeed())
			Expect(zero).To(HaveLen(1))
			Expect(zero[0].FSNo).To(Equal("41"))
			Expect(db.documents).To(BeEmpty())
		})
	})

	Describe("handleListTransactions", func() {
		When("records exist", func() {
			BeforeEach(func() {
				db.records = append(db.records,
					&Record{ID: "1", Transaction: parsing.Transaction{Item: "COLA"}},
					&Record{ID: "2", Transaction: parsing.Transaction{Item: "BREAD"}},
				)
			})

			It("should return all records as JSON", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/transactions")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var records []*Record
				Expect(json.NewDecoder(resp.Body).Decode(&records)).To(Succeed())
				Expect(records).To(HaveLen(2))
				Expect(records[0].Item).To(Equal("COLA"))
			})
		})
	})

	Describe("handleGetTransaction", func() {
		BeforeEach(func() {
			db.records = append(db.records, &Record{ID: "rec-1", Transaction: parsing.Transaction{Item: "COLA"}})
		})

		It("should return the record", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/transactions/rec-1")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var record Record
			Expect(json.NewDecoder(resp.Body).Decode(&record)).To(Succeed())
			Expect(record.Item).To(Equal("COLA"))
		})

		It("should return not found for an unknown ID", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/transactions/nope")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("handleDeleteTransaction", func() {
		BeforeEach(func() {
			db.records = append(db.records, &Record{ID: "rec-1"})
		})

		It("should delete the record", func() {
			req, err := http.NewRequest("DELETE", ghttpServer.URL()+"/api/transactions/rec-1", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(db.records).To(BeEmpty())
		})
	})

	Describe("handleExport", func() {
		It("should return an XLSX attachment", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/export")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"))
			Expect(resp.Header.Get("Content-Disposition")).To(ContainSubstring(ExportFilename))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(body).To(Equal([]byte("workbook bytes")))
		})
	})

	Describe("authentication", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "user", Password: "pass"}
			server = NewServerWithMux(service, auth, http.NewServeMux())
			setupServer()
		})

		When("credentials are missing", func() {
			It("should return unauthorized", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/transactions")
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			})
		})

		When("credentials are valid", func() {
			It("should serve the request", func() {
				req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/transactions", nil)
				Expect(err).NotTo(HaveOccurred())
				credentials := base64.StdEncoding.EncodeToString([]byte("user:pass"))
				req.Header.Set("Authorization", "Basic "+credentials)
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
			})
		})
	})
})
