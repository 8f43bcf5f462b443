package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var (
	sessionTxHex       string
	sessionTxFile      string
	sessionDescription string
	sessionExportDir   string

	sessionStartCmd = &cobra.Command{
		Use:   "start",
		Short: "open a signing session for a transaction",
		Long: "this command lets you open a signing session for the given raw " +
			"transaction (in hex format), either inline or read from a file",
		RunE: sessionStart,
	}
	sessionListCmd = &cobra.Command{
		Use:   "list",
		Short: "list the open signing sessions",
		RunE:  sessionList,
	}
	sessionInfoCmd = &cobra.Command{
		Use:   "info",
		Short: "show the details of a signing session",
		Args:  cobra.ExactArgs(1),
		RunE:  sessionInfo,
	}
	sessionSignCmd = &cobra.Command{
		Use:   "sign",
		Short: "add this cosigner's signatures to the session's transaction",
		Long: "this command asks the wallet daemon to sign the session's " +
			"transaction, signing runs in background, check the session info " +
			"for the outcome",
		Args: cobra.ExactArgs(1),
		RunE: sessionSign,
	}
	sessionBroadcastCmd = &cobra.Command{
		Use:   "broadcast",
		Short: "send the session's transaction over the network",
		Long: "this command lets you publish the session's final signed " +
			"transaction through the network to be included in a future block",
		Args: cobra.ExactArgs(1),
		RunE: sessionBroadcast,
	}
	sessionSaveCmd = &cobra.Command{
		Use:   "save",
		Short: "store the session's transaction in the wallet local history",
		Args:  cobra.ExactArgs(1),
		RunE:  sessionSave,
	}
	sessionExportCmd = &cobra.Command{
		Use:   "export",
		Short: "export the session's transaction to a file",
		Long: "this command lets you export the session's transaction to a " +
			"file to be handed to the next cosigner",
		Args: cobra.ExactArgs(1),
		RunE: sessionExport,
	}
	sessionCloseCmd = &cobra.Command{
		Use:   "close",
		Short: "end a signing session",
		Args:  cobra.ExactArgs(1),
		RunE:  sessionClose,
	}
	sessionCmd = &cobra.Command{
		Use:   "session",
		Short: "interact with cosigner signing sessions",
		Long: "this command lets you open, inspect and drive the signing " +
			"sessions of the cosigner daemon",
	}
)

func init() {
	sessionStartCmd.Flags().StringVar(
		&sessionTxHex, "tx", "", "raw transaction in hex format",
	)
	sessionStartCmd.Flags().StringVar(
		&sessionTxFile, "tx-file", "", "path of a file containing the raw transaction",
	)
	sessionStartCmd.Flags().StringVar(
		&sessionDescription, "description", "", "optional label for the transaction",
	)
	sessionExportCmd.Flags().StringVar(
		&sessionExportDir, "out-dir", ".", "directory where to write the exported file",
	)

	sessionCmd.AddCommand(
		sessionStartCmd, sessionListCmd, sessionInfoCmd, sessionSignCmd,
		sessionBroadcastCmd, sessionSaveCmd, sessionExportCmd, sessionCloseCmd,
	)
}

func sessionStart(_ *cobra.Command, _ []string) error {
	txHex := sessionTxHex
	if len(txHex) <= 0 && len(sessionTxFile) > 0 {
		buf, err := os.ReadFile(sessionTxFile)
		if err != nil {
			printErr(err)
			return nil
		}
		txHex = strings.TrimSpace(string(buf))
	}
	if len(txHex) <= 0 {
		printErr(fmt.Errorf("missing tx, use either --tx or --tx-file"))
		return nil
	}

	resp, err := callDaemon(http.MethodPost, "/v1/sessions", map[string]string{
		"tx_hex":      txHex,
		"description": sessionDescription,
	})
	if err != nil {
		printErr(err)
		return nil
	}

	fmt.Println(jsonResponse(resp))
	return nil
}

func sessionList(_ *cobra.Command, _ []string) error {
	resp, err := callDaemon(http.MethodGet, "/v1/sessions", nil)
	if err != nil {
		printErr(err)
		return nil
	}

	fmt.Println(jsonResponse(resp))
	return nil
}

func sessionInfo(_ *cobra.Command, args []string) error {
	resp, err := callDaemon(http.MethodGet, "/v1/sessions/"+args[0], nil)
	if err != nil {
		printErr(err)
		return nil
	}

	fmt.Println(jsonResponse(resp))
	return nil
}

func sessionSign(_ *cobra.Command, args []string) error {
	if _, err := callDaemon(
		http.MethodPost, "/v1/sessions/"+args[0]+"/sign", nil,
	); err != nil {
		printErr(err)
		return nil
	}

	fmt.Println("signing started, check the session info for the outcome")
	return nil
}

func sessionBroadcast(_ *cobra.Command, args []string) error {
	resp, err := callDaemon(
		http.MethodPost, "/v1/sessions/"+args[0]+"/broadcast", nil,
	)
	if err != nil {
		printErr(err)
		return nil
	}

	fmt.Println(jsonResponse(resp))
	return nil
}

func sessionSave(_ *cobra.Command, args []string) error {
	if _, err := callDaemon(
		http.MethodPost, "/v1/sessions/"+args[0]+"/save", nil,
	); err != nil {
		printErr(err)
		return nil
	}

	fmt.Println("transaction saved")
	return nil
}

func sessionExport(_ *cobra.Command, args []string) error {
	addr, err := getServerAddr()
	if err != nil {
		printErr(err)
		return nil
	}

	resp, err := http.Get(addr + "/v1/sessions/" + args[0] + "/export")
	if err != nil {
		printErr(fmt.Errorf("failed to connect to cosigner daemon: %v", err))
		return nil
	}
	defer resp.Body.Close()

	data, err := callResponseBody(resp)
	if err != nil {
		printErr(err)
		return nil
	}

	filename := filenameFromHeader(
		resp.Header.Get("Content-Disposition"), "exported.txn",
	)
	outPath := filepath.Join(sessionExportDir, filename)
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		printErr(err)
		return nil
	}

	fmt.Printf("transaction exported to %s\n", outPath)
	return nil
}

func sessionClose(_ *cobra.Command, args []string) error {
	if _, err := callDaemon(
		http.MethodDelete, "/v1/sessions/"+args[0], nil,
	); err != nil {
		printErr(err)
		return nil
	}

	fmt.Println("session closed")
	return nil
}
