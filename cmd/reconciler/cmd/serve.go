package cmd

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"partner-reconciliation-service/internal/parsers"
	"partner-reconciliation-service/internal/reconciler"
	"partner-reconciliation-service/pkg/logger"
)

var serveAddr string

// serveCmd runs the upload-and-reconcile web UI
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a web UI for uploading and reconciling files",
	Long: `Serve starts a small web server with an upload form. Posting a
partner statement and a settlement report returns the reconciliation
result table in the browser.

Examples:
  reconciler serve
  reconciler serve --addr :9090`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8082", "listen address")
	viper.BindPFlag("addr", serveCmd.Flags().Lookup("addr"))
}

// maxUploadBytes bounds the multipart form size of one request
const maxUploadBytes = 32 << 20

type uploadServer struct {
	service *reconciler.Service
	logger  logger.Logger
}

func runServe(cmd *cobra.Command, args []string) error {
	serveAddr = viper.GetString("addr")

	service, err := reconciler.NewService(nil)
	if err != nil {
		return fmt.Errorf("failed to create reconciliation service: %w", err)
	}

	s := &uploadServer{
		service: service,
		logger:  logger.GetGlobalLogger().WithComponent("server"),
	}

	router := mux.NewRouter()
	router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	router.HandleFunc("/process", s.handleProcess).Methods(http.MethodPost)

	server := &http.Server{
		Addr:         serveAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", serveAddr).Info("Server listening")
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		s.logger.WithField("signal", sig.String()).Info("Shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(ctx)
	}
}

func (s *uploadServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, nil); err != nil {
		s.logger.WithError(err).Error("Failed to render index page")
	}
}

func (s *uploadServer) handleProcess(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid upload: "+err.Error(), http.StatusBadRequest)
		return
	}

	statementTable, err := s.readUpload(r, "statement_file")
	if err != nil {
		http.Error(w, "statement file: "+err.Error(), http.StatusBadRequest)
		return
	}
	settlementTable, err := s.readUpload(r, "settlement_file")
	if err != nil {
		http.Error(w, "settlement file: "+err.Error(), http.StatusBadRequest)
		return
	}

	result, err := s.service.ReconcileTables(r.Context(), statementTable, settlementTable)
	if err != nil {
		s.logger.WithError(err).Error("Reconciliation failed")
		http.Error(w, "reconciliation failed: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := resultsTemplate.Execute(w, result); err != nil {
		s.logger.WithError(err).Error("Failed to render results page")
	}
}

// readUpload reads one uploaded file into a raw table, detecting the
// format from the uploaded file name
func (s *uploadServer) readUpload(r *http.Request, field string) (parsers.RawTable, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("missing upload field %q: %w", field, err)
	}
	defer file.Close()

	return parsers.ReadTable(file, parsers.DetectFormat(header.Filename))
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><title>Partner Reconciliation</title></head>
<body>
  <h1>Partner Reconciliation</h1>
  <form action="/process" method="post" enctype="multipart/form-data">
    <p><label>Partner statement: <input type="file" name="statement_file" required></label></p>
    <p><label>Settlement report: <input type="file" name="settlement_file" required></label></p>
    <p><button type="submit">Reconcile</button></p>
  </form>
</body>
</html>
`))

var resultsTemplate = template.Must(template.New("results").Parse(`<!DOCTYPE html>
<html>
<head><title>Reconciliation Results</title></head>
<body>
  <h1>Reconciliation Results</h1>
  <p>Processed at {{.ProcessedAt.Format "2006-01-02 15:04:05"}} in {{.Duration}}</p>
  <table border="1" cellpadding="4">
    <tr>
      <th>PartnerPin</th><th>Classification</th><th>FinalStatus</th>
      <th>StatementAmount</th><th>SettlementAmountUSD</th><th>AmountVariance</th>
    </tr>
    {{range .Results}}
    <tr>
      <td>{{.Pin}}</td>
      <td>{{.Classification}}</td>
      <td>{{.FinalStatus}}</td>
      <td>{{if .StatementAmount.Valid}}{{.StatementAmount.Decimal.StringFixed 2}}{{end}}</td>
      <td>{{if .SettlementAmountUSD.Valid}}{{.SettlementAmountUSD.Decimal.StringFixed 2}}{{end}}</td>
      <td>{{if .AmountVariance.Valid}}{{.AmountVariance.Decimal.StringFixed 2}}{{end}}</td>
    </tr>
    {{end}}
  </table>
  <p><a href="/">Reconcile more files</a></p>
</body>
</html>
`))
