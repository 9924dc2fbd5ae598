package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mikelcalvo/quotedesk/internal/erp"
	"github.com/mikelcalvo/quotedesk/internal/logger"
	"github.com/mikelcalvo/quotedesk/internal/server"
)

func main() {
	// No arguments or "tui" command -> launch TUI
	if len(os.Args) < 2 || os.Args[1] == "tui" {
		// First run: no config anywhere, ask for one
		if !erp.HasConfig() && os.Getenv("ERP_URL") == "" {
			if !setup() {
				os.Exit(0)
			}
		}
		config, err := erp.LoadConfig()
		if err != nil {
			fail(err)
		}
		client := erp.NewClient(config)
		// stdout belongs to the alt screen: log to file or nowhere
		client.Logger = logger.NewOrNop(config.LogLevel, config.LogFile)

		err = erp.RunTUI(client)
		client.Logger.Sync()
		if err != nil {
			fail(err)
		}
		os.Exit(0)
	}

	cmd := os.Args[1]

	// Help doesn't need config
	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		printUsage()
		os.Exit(0)
	}

	// Version
	if cmd == "version" || cmd == "-v" || cmd == "--version" {
		fmt.Printf("Quote Desk v%s\n", erp.Version)
		fmt.Printf("Created by %s in %s\n", erp.Author, erp.Year)
		os.Exit(0)
	}

	// Commands that never talk to the ERP
	switch cmd {
	case "setup":
		setup()
		os.Exit(0)
	case "price":
		config, err := erp.LoadLocalConfig()
		if err != nil {
			fail(err)
		}
		if err := erp.CmdPrice(os.Args[2:], config.DefaultTax); err != nil {
			fail(err)
		}
		os.Exit(0)
	case "serve":
		if err := serve(); err != nil {
			fail(err)
		}
		os.Exit(0)
	}

	// Load config
	config, err := erp.LoadConfig()
	if err != nil {
		fail(err)
	}

	// Create client
	client := erp.NewClient(config)
	if config.LogFile != "" {
		l, err := logger.New(config.LogLevel, config.LogFile)
		if err != nil {
			fail(err)
		}
		client.Logger = l
	}

	// Detect connection mode (except for ping/config which do it themselves)
	if cmd != "ping" && cmd != "config" {
		client.DetectConnection()
	}

	// Route commands
	var cmdErr error
	switch cmd {
	case "ping":
		cmdErr = client.CmdPing()
	case "config":
		cmdErr = client.CmdConfig()
	case "quotation", "qtn":
		cmdErr = client.CmdQuotation(os.Args[2:])
	case "so":
		cmdErr = client.CmdSO(os.Args[2:])
	case "invoice", "si":
		cmdErr = client.CmdInvoice(os.Args[2:])
	case "stock":
		cmdErr = client.CmdStock(os.Args[2:])
	case "inquiry":
		cmdErr = client.CmdInquiry(os.Args[2:])
	case "report":
		cmdErr = client.CmdReport(os.Args[2:])
	default:
		fmt.Printf("%sUnknown command: %s%s\n", erp.Red, cmd, erp.Reset)
		printUsage()
		os.Exit(1)
	}

	if cmdErr != nil {
		client.Logger.Error("command failed", zap.String("command", cmd), zap.Error(cmdErr))
	}
	client.Logger.Sync()
	if cmdErr != nil {
		fail(cmdErr)
	}
}

// serve runs the pricing HTTP API until SIGINT or SIGTERM.
func serve() error {
	config, err := erp.LoadLocalConfig()
	if err != nil {
		return err
	}

	log, err := logger.New(config.LogLevel, config.LogFile)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(server.Config{
		Addr:          config.ServeAddr,
		InternalToken: config.InternalToken,
		Brand:         config.Brand,
		Company:       config.Company,
		DefaultTax:    config.DefaultTax,
	}, log)
	if config.InternalToken == "" {
		log.Warn("INTERNAL_TOKEN not set, /v1 routes are open")
	}
	return srv.ListenAndServe(ctx)
}

// setup runs the configuration wizard and reports whether a config was saved.
func setup() bool {
	saved, err := erp.RunSetupTUI(".erp-config", nil)
	if err != nil {
		fail(err)
	}
	return saved
}

func fail(err error) {
	fmt.Printf("%sError: %s%s\n", erp.Red, err, erp.Reset)
	os.Exit(1)
}

func printUsage() {
	fmt.Printf(`%sQuote Desk%s - quotations to invoices on ERPNext

Usage: quotedesk <command> [subcommand] [args...]

%sCommands:%s

  %stui%s                               Interactive dashboard (default)
  %sping%s                              Test connection and authentication
  %sconfig%s                            Show current configuration
  %ssetup%s                             Write .erp-config interactively
  %sversion%s                           Show version information
  %sreport%s                            Print the dashboard

%sQuotations:%s
  %squotation list [--customer=X] [--status=X]%s
                                      List quotations
  %squotation get <name>%s              Show quotation with line totals
  %squotation create <customer> <line>...%s
                                      Create draft quotation from lines
  %squotation create <customer> --from=<file>%s
                                      Create draft quotation from an inquiry
  %squotation submit <name>%s           Submit quotation
  %squotation cancel <name>%s           Cancel quotation
  %squotation preview <name>%s          Check stock before converting
  %squotation convert <name>%s          Create sales order from quotation
  %squotation pdf <name> [--out=file]%s Export quotation as PDF

%sSales Orders:%s
  %sso list [--customer=X] [--status=X]%s
                                      List sales orders
  %sso get <name>%s                     Show sales order
  %sso submit <name>%s                  Submit sales order
  %sso invoice <name>%s                 Create sales invoice from order

%sSales Invoices:%s
  %sinvoice list [--customer=X] [--status=X]%s
                                      List sales invoices
  %sinvoice get <name>%s                Show invoice
  %sinvoice submit <name>%s             Submit invoice
  %sinvoice tax-sync <name>%s           Send invoice to the tax authority

%sStock:%s
  %sstock get <item>%s                  Stock per warehouse
  %sstock low [--threshold=N]%s         Items below the reorder level
  %sstock reorder [--target=N] [item...]%s
                                      Create a purchase material request

%sOffline:%s
  %sinquiry parse <file>%s              Draft lines from a customer document
  %sprice <line>...%s                   Price lines without the ERP
  %sserve%s                             Run the pricing HTTP API

%sLine formats:%s
  "2 x LED panel @ 1200"              qty x description @ price [-disc%%]
  "LED panel; 2; 1200; 10; 18"        description; qty; price[; disc[; tax]]
  "LED panel | 2 | 1200"              same fields separated by | or tab

%sExamples:%s
  quotedesk ping
  quotedesk price "2 x LED panel @ 1200" "Installation; 1; 500; 10"
  quotedesk quotation create "Acme Corp" "2 x LED panel @ 1200"
  quotedesk quotation convert SAL-QTN-2025-00001
  quotedesk so invoice SAL-ORD-2025-00001

`,
		erp.Blue, erp.Reset,
		erp.Yellow, erp.Reset,
		erp.Green, erp.Reset, erp.Green, erp.Reset, erp.Green, erp.Reset, erp.Green, erp.Reset, erp.Green, erp.Reset, erp.Green, erp.Reset,
		erp.Yellow, erp.Reset,
		erp.Green, erp.Reset, erp.Green, erp.Reset, erp.Green, erp.Reset, erp.Green, erp.Reset,
		erp.Green, erp.Reset, erp.Green, erp.Reset, erp.Green, erp.Reset, erp.Green, erp.Reset, erp.Green, erp.Reset,
		erp.Yellow, erp.Reset,
		erp.Green, erp.Reset, erp.Green, erp.Reset, erp.Green, erp.Reset, erp.Green, erp.Reset,
		erp.Yellow, erp.Reset,
		erp.Green, erp.Reset, erp.Green, erp.Reset, erp.Green, erp.Reset, erp.Green, erp.Reset,
		erp.Yellow, erp.Reset,
		erp.Green, erp.Reset, erp.Green, erp.Reset, erp.Green, erp.Reset,
		erp.Yellow, erp.Reset,
		erp.Green, erp.Reset, erp.Green, erp.Reset, erp.Green, erp.Reset,
		erp.Yellow, erp.Reset,
		erp.Yellow, erp.Reset,
	)
}
