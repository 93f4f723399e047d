package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsgo_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/vishnuchaithanya1/Park-Ease/internal/api"
	"github.com/vishnuchaithanya1/Park-Ease/internal/config"
	"github.com/vishnuchaithanya1/Park-Ease/internal/iot"
	"github.com/vishnuchaithanya1/Park-Ease/internal/notify"
	"github.com/vishnuchaithanya1/Park-Ease/internal/repository"
	"github.com/vishnuchaithanya1/Park-Ease/internal/repository/memory"
	"github.com/vishnuchaithanya1/Park-Ease/internal/repository/postgresql"
	"github.com/vishnuchaithanya1/Park-Ease/internal/service"
)

func main() {
	// 1. Configuration
	cfg := config.Load()
	log.Println("Configuration loaded.")

	// 2. Storage
	var store repository.Store
	switch cfg.StoreDriver {
	case "postgres":
		db, err := postgresql.NewDB(cfg)
		if err != nil {
			log.Fatalf("Cannot connect to database: %v", err)
		}
		defer db.Close()
		if err := postgresql.Migrate(context.Background(), db); err != nil {
			log.Fatalf("Cannot migrate database: %v", err)
		}
		store = postgresql.NewStore(db)
		log.Println("Connected to PostgreSQL.")
	default:
		store = memory.NewStore()
		log.Println("Using in-memory store; data is lost on restart.")
	}

	// 3. AWS clients, only when something needs them
	var awsSDKCfg aws.Config
	needAWS := cfg.SQSEventQueueURL != "" || cfg.IoTMQTTEndpoint != "" || cfg.LPREnabled
	if needAWS {
		var err error
		awsSDKCfg, err = awsgo_config.LoadDefaultConfig(context.TODO(), awsgo_config.WithRegion(cfg.AWSRegion))
		if err != nil {
			log.Fatalf("Cannot load AWS SDK config: %v", err)
		}
		log.Println("AWS SDK config loaded for region:", cfg.AWSRegion)
	}

	// 4. Notification sinks
	hub := notify.NewHub()
	sinks := []notify.Sink{hub}
	if cfg.IoTMQTTEndpoint != "" {
		iotDataPlaneClient := iotdataplane.NewFromConfig(awsSDKCfg, func(o *iotdataplane.Options) {
			endpointWithSchema := cfg.IoTMQTTEndpoint
			if !strings.HasPrefix(endpointWithSchema, "https://") && !strings.HasPrefix(endpointWithSchema, "http://") {
				endpointWithSchema = "https://" + endpointWithSchema
			}
			o.BaseEndpoint = aws.String(endpointWithSchema)
		})
		sinks = append(sinks, notify.NewIoTSink(iotDataPlaneClient, cfg.IoTTopicPrefix))
		log.Println("IoT notification sink enabled.")
	}
	if cfg.RabbitMQURL != "" {
		rabbit, err := notify.DialRabbit(cfg.RabbitMQURL, cfg.RabbitMQExchange, 5)
		if err != nil {
			log.Printf("WARNING: RabbitMQ unavailable, events will not be published there: %v", err)
		} else {
			defer rabbit.Close()
			sinks = append(sinks, rabbit)
		}
	}
	dispatcher := notify.NewDispatcher(256, 5*time.Second, sinks...)

	// 5. Services
	policy := service.PolicyFromConfig(cfg)
	clock := service.SystemClock
	pricing := service.NewPricingEngine(store.Areas(), policy)
	inventory := service.NewSlotInventory(store.Areas(), store.Slots(), pricing, dispatcher, policy)
	dues := service.NewDuesLedger(store.Dues(), dispatcher, policy, clock)
	bookings := service.NewBookingService(store.Bookings(), store.Vehicles(), store.Areas(), inventory, pricing, dues, dispatcher, policy, clock)
	authService := service.NewAuthService(store.Users(), cfg.JWTSecret, cfg.JWTExpirationHours)
	areaService := service.NewAreaService(store.Areas(), store.Users(), inventory, pricing, policy, cfg.DefaultGracePeriod, cfg.DefaultWaiverPeriod)
	vehicleService := service.NewVehicleService(store.Vehicles(), store.Users(), dues)
	paymentService := service.NewPaymentService(service.NewSimulatedGateway(), bookings, dues)

	var lprService *service.LPRService
	if cfg.LPREnabled {
		lprService = service.NewLPRService(rekognition.NewFromConfig(awsSDKCfg))
		log.Println("Plate recognition enabled.")
	} else {
		lprService = service.NewLPRService(nil)
	}
	gateService := service.NewGateService(bookings, lprService)
	scheduler := service.NewExpiryScheduler(store.Bookings(), bookings, cfg.ExpiryInterval, policy, clock)

	// 6. Background workers
	var wg sync.WaitGroup
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	runWorker := func(name string, fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(workerCtx)
			log.Printf("%s stopped.", name)
		}()
	}
	runWorker("WebSocket hub", hub.Run)
	runWorker("Notification dispatcher", dispatcher.Run)
	runWorker("Expiry scheduler", scheduler.Run)

	if cfg.SQSEventQueueURL == "" {
		log.Println("WARNING: SQS_EVENT_QUEUE_URL is not set. Gate events will only arrive over HTTP.")
	} else {
		sqsConsumer := iot.NewSQSConsumer(sqs.NewFromConfig(awsSDKCfg), cfg.SQSEventQueueURL, gateService)
		runWorker("SQS consumer", sqsConsumer.Start)
	}

	// 7. HTTP
	router := api.SetupRouter(api.Services{
		Auth:     authService,
		Areas:    areaService,
		Vehicles: vehicleService,
		Bookings: bookings,
		Dues:     dues,
		Payments: paymentService,
		Gate:     gateService,
		Hub:      hub,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Printf("Server listening on port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shut down: %v", err)
	}

	cancelWorkers()
	log.Println("Waiting for background workers (up to 5 seconds)...")
	c := make(chan struct{})
	go func() {
		defer close(c)
		wg.Wait()
	}()
	select {
	case <-c:
		log.Println("Background workers stopped.")
	case <-time.After(5 * time.Second):
		log.Println("Background workers did not stop in time.")
	}

	log.Println("Server stopped.")
}
