// Package main is the entry point for the JazzBot Go application.
// It initializes all systems and starts the Discord bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PancyStudios/JazzBotGo/internal/commands"
	"github.com/PancyStudios/JazzBotGo/internal/commands/utils"
	"github.com/PancyStudios/JazzBotGo/internal/events"
	"github.com/PancyStudios/JazzBotGo/pkg/anticrash"
	"github.com/PancyStudios/JazzBotGo/pkg/config"
	"github.com/PancyStudios/JazzBotGo/pkg/database"
	"github.com/PancyStudios/JazzBotGo/pkg/discord"
	"github.com/PancyStudios/JazzBotGo/pkg/lavalink"
	"github.com/PancyStudios/JazzBotGo/pkg/logger"
	"github.com/PancyStudios/JazzBotGo/pkg/mqtt"
	"github.com/PancyStudios/JazzBotGo/pkg/music"
	"github.com/PancyStudios/JazzBotGo/pkg/spotify"
	"github.com/PancyStudios/JazzBotGo/pkg/web"
)

func main() {
	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(cfg.ErrorWebhook, cfg.LogsWebhook)
	defer log.Close()

	logger.System(fmt.Sprintf("Iniciando JazzBot Go %s (%s)...", config.Version, config.BuildTime), "Main")
	logger.Info(fmt.Sprintf("Directorio de trabajo: %s", getCurrentDir()), "Main")

	// Too many recovered panics in a row stop the process through sc
	sc := make(chan os.Signal, 1)
	anticrash.Init(cfg.ErrorWebhook, func() {
		select {
		case sc <- syscall.SIGTERM:
		default:
		}
	})
	defer anticrash.Get().Stop()

	// Database (optional)
	var db *database.Database
	var store interface{ GetStatus() (string, bool) }
	if cfg.HasDatabase() {
		db = database.NewDatabase()
		if err := db.Connect(cfg.MongoDBURL, cfg.DBName); err != nil {
			logger.Error(fmt.Sprintf("Error connecting to database: %v", err), "Main")
		}
		defer func() {
			if err := db.Disconnect(); err != nil {
				logger.Warn(fmt.Sprintf("Error cerrando la base de datos: %v", err), "Main")
			}
		}()
		store = db
	}
	history := database.NewHistoryStore(db)

	// MQTT (optional)
	var mqttClient *mqtt.Communicator
	if cfg.HasMQTT() {
		mqttClientID := "jazzbot"
		if !cfg.IsProd() {
			mqttClientID = "jazzbot_canary"
		}
		mqttClient = mqtt.NewCommunicator(cfg.MQTTHost, cfg.MQTTPort, cfg.MQTTUser, cfg.MQTTPassword, mqttClientID)
		defer mqttClient.Destroy()
	}

	discordClient, err := discord.NewClient(cfg.BotToken, discord.ClientOptions{
		DevGuildID:   cfg.DevGuildID,
		CommandRate:  cfg.CommandRate,
		CommandBurst: cfg.CommandBurst,
	})
	if err != nil {
		logger.Critical(fmt.Sprintf("Error creating Discord client: %v", err), "Main")
		os.Exit(1)
	}

	node := lavalink.NewClient(lavalink.NodeConfig{
		Name:         "JazzNode",
		Host:         cfg.LavalinkHost,
		Port:         cfg.LavalinkPort,
		Password:     cfg.LavalinkPassword,
		Secure:       cfg.LavalinkSecure,
		SearchPrefix: cfg.LavalinkSearchPrefix,
	})
	node.Attach(discordClient.Session)
	defer node.Close()

	spotifyClient := spotify.NewClient(context.Background(), spotify.Config{
		ClientID:     cfg.SpotifyClientID,
		ClientSecret: cfg.SpotifyClientSecret,
	})

	voice := discord.NewVoice(discordClient.Session)
	voice.Attach(discordClient.EventHandler)

	registry := music.NewRegistry(music.Options{
		Node:           node,
		Voice:          voice,
		Resolver:       music.NewResolver(node, spotifyClient, cfg.ResolveTimeout),
		BackendTimeout: cfg.BackendTimeout,
		InboxSize:      cfg.SessionInboxSize,
	})
	registry.AddObserver(history)
	node.OnTrackEnd(registry.HandleTrackEnded)

	if mqttClient != nil {
		publisher := mqtt.NewStatePublisher(mqttClient, node.Position)
		defer publisher.Stop()
		registry.AddObserver(publisher)
		mqttClient.On(mqtt.StateRequestTopic, mqtt.StateHandler(registry.Snapshot, node.Position))
	}

	commands.RegisterAll(discordClient, &commands.Music{
		Registry: registry,
		History:  history,
		Position: node.Position,
		Timeout:  cfg.ResolveTimeout + 2*cfg.BackendTimeout,
	}, &utils.Status{
		Node:     node,
		Store:    store,
		Sessions: registry,
		Version:  config.Version,
	})
	events.RegisterAll(discordClient, &events.Handlers{
		Sessions: registry,
		Node:     node,
	})

	webServer := web.NewServer(web.Options{WebhookURL: cfg.LogsWebhook})
	web.SetupAPIRoutes(webServer, &web.API{
		Bot:      discordClient,
		Node:     node,
		Store:    store,
		Sessions: registry,
		Position: node.Position,
		Version:  config.Version,
	})
	webServer.StartAsync(cfg.Port)

	if err := discordClient.Start(); err != nil {
		logger.Critical(fmt.Sprintf("Error starting Discord client: %v", err), "Main")
		os.Exit(1)
	}

	logger.Success("JazzBot Go iniciado correctamente!", "Main")

	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	logger.System("Apagando JazzBot Go...", "Main")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := webServer.Shutdown(ctx); err != nil {
		logger.Warn(fmt.Sprintf("Error cerrando el servidor web: %v", err), "Main")
	}
	registry.Close(ctx)
	history.Close()
	if err := discordClient.Stop(); err != nil {
		logger.Warn(fmt.Sprintf("Error cerrando la sesión de Discord: %v", err), "Main")
	}
}

// getCurrentDir returns the current working directory
func getCurrentDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "unknown"
	}
	return dir
}
