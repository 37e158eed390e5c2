package inject

import (
	"fmt"
	"strings"
)

// Script construction and output parsing are kept free of build tags so
// they are unit-testable on every platform; only dispatch itself is
// platform-specific.

// escapePowerShell makes s safe inside a PowerShell double-quoted string.
func escapePowerShell(s string) string {
	s = strings.ReplaceAll(s, "`", "``")
	s = strings.ReplaceAll(s, `"`, "`\"")
	return strings.ReplaceAll(s, "$", "`$")
}

// escapeAppleScript makes s safe inside an AppleScript string literal.
func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// parseDispatchOutput maps script stdout onto a Result. Scripts print
// exactly one of SUCCESS, NOTFOUND, or an ERROR line.
func parseDispatchOutput(output string) Result {
	switch {
	case strings.Contains(output, "SUCCESS"):
		return Sent
	case strings.Contains(output, "NOTFOUND"):
		return NotFound
	}
	return Failed
}

// buildWindowsDispatchScript returns the PowerShell program that finds the
// target console window, focuses it, disables the IME, pastes the
// clipboard, presses Enter, and restores the original foreground window.
// The command itself travels on the clipboard, never inside the script, so
// no command escaping can corrupt it.
func buildWindowsDispatchScript(windowPattern string) string {
	return fmt.Sprintf(`
Add-Type -AssemblyName System.Windows.Forms

Add-Type @"
	using System;
	using System.Runtime.InteropServices;
	using System.Text;

	public class InputHelper {
		[DllImport("user32.dll")]
		public static extern bool EnumWindows(EnumWindowsProc enumProc, IntPtr lParam);

		[DllImport("user32.dll")]
		public static extern int GetWindowText(IntPtr hWnd, StringBuilder lpString, int nMaxCount);

		[DllImport("user32.dll")]
		public static extern uint GetWindowThreadProcessId(IntPtr hWnd, out uint lpdwProcessId);

		[DllImport("user32.dll")]
		public static extern bool IsWindowVisible(IntPtr hWnd);

		[DllImport("user32.dll")]
		public static extern bool SetForegroundWindow(IntPtr hWnd);

		[DllImport("user32.dll")]
		public static extern IntPtr GetForegroundWindow();

		[DllImport("imm32.dll")]
		public static extern IntPtr ImmGetContext(IntPtr hWnd);

		[DllImport("imm32.dll")]
		public static extern bool ImmReleaseContext(IntPtr hWnd, IntPtr hIMC);

		[DllImport("imm32.dll")]
		public static extern bool ImmGetOpenStatus(IntPtr hIMC);

		[DllImport("imm32.dll")]
		public static extern bool ImmSetOpenStatus(IntPtr hIMC, bool fOpen);

		public delegate bool EnumWindowsProc(IntPtr hWnd, IntPtr lParam);
	}
"@

$candidates = @()
$callback = {
	param($hWnd, $lParam)
	$sb = New-Object System.Text.StringBuilder 256
	[InputHelper]::GetWindowText($hWnd, $sb, $sb.Capacity) | Out-Null
	$title = $sb.ToString()

	if ([InputHelper]::IsWindowVisible($hWnd)) {
		if ($title -like "*%[1]s*" -or $title -like "*%[2]s*") {
			$procId = 0
			[InputHelper]::GetWindowThreadProcessId($hWnd, [ref]$procId) | Out-Null
			$proc = Get-Process -Id $procId -ErrorAction SilentlyContinue

			$script:candidates += [PSCustomObject]@{
				Handle = $hWnd
				Title = $title
				ProcessName = if ($proc) { $proc.ProcessName } else { "Unknown" }
			}
		}
	}
	return $true
}

[InputHelper]::EnumWindows($callback, [IntPtr]::Zero) | Out-Null

if ($candidates.Count -eq 0) {
	Write-Output "NOTFOUND"
	exit 1
}

# Prefer the window stamped with our application tag, then a console host.
$targetWindow = $null
foreach ($cand in $candidates) {
	if ($cand.Title -like "*%[2]s*") {
		$targetWindow = $cand
		break
	}
}
if ($targetWindow -eq $null) {
	foreach ($cand in $candidates) {
		if ($cand.ProcessName -eq "conhost") {
			$targetWindow = $cand
			break
		}
	}
}
if ($targetWindow -eq $null) {
	$targetWindow = $candidates[0]
}

$originalWindow = [InputHelper]::GetForegroundWindow()

[InputHelper]::SetForegroundWindow($targetWindow.Handle) | Out-Null
Start-Sleep -Milliseconds 80

try {
	# The IME would reinterpret the paste keystroke; force it off first.
	$hIMC = [InputHelper]::ImmGetContext($targetWindow.Handle)
	if ($hIMC -ne [IntPtr]::Zero) {
		if ([InputHelper]::ImmGetOpenStatus($hIMC)) {
			[InputHelper]::ImmSetOpenStatus($hIMC, $false) | Out-Null
		}
		[InputHelper]::ImmReleaseContext($targetWindow.Handle, $hIMC) | Out-Null
	}
	Start-Sleep -Milliseconds 50

	[System.Windows.Forms.SendKeys]::SendWait("^v{ENTER}")
	Write-Output "SUCCESS"
} catch {
	Write-Output "ERROR: $_"
	exit 1
} finally {
	if ($originalWindow -ne [IntPtr]::Zero) {
		[InputHelper]::SetForegroundWindow($originalWindow) | Out-Null
	}
}
`, escapePowerShell(windowPattern), escapePowerShell(AppTag))
}

// buildDarwinDispatchScript returns the AppleScript program that locates
// the Terminal window hosting the console, brings it frontmost, pastes the
// clipboard with Cmd-V, presses Return, and reactivates the previously
// frontmost application.
func buildDarwinDispatchScript(windowPattern string) string {
	return fmt.Sprintf(`
tell application "System Events"
	set previousApp to name of first application process whose frontmost is true
end tell

set targetFound to false
tell application "Terminal"
	repeat with w in windows
		try
			set windowName to name of w
			if windowName contains "%[2]s" or windowName contains "%[1]s" then
				set index of w to 1
				set targetFound to true
				exit repeat
			end if
			repeat with t in tabs of w
				if "%[1]s" is in (processes of t) or (contents of t contains "%[1]s") then
					set index of w to 1
					set targetFound to true
					exit repeat
				end if
			end repeat
			if targetFound then exit repeat
		end try
	end repeat
	if targetFound then activate
end tell

if not targetFound then
	return "NOTFOUND"
end if

delay 0.3

set dispatchResult to "SUCCESS"
try
	tell application "System Events"
		tell process "Terminal"
			keystroke "v" using command down
			delay 0.1
			keystroke return
		end tell
	end tell
on error errMsg
	set dispatchResult to "ERROR: " & errMsg
end try

try
	tell application previousApp to activate
end try

return dispatchResult
`, escapeAppleScript(windowPattern), escapeAppleScript(AppTag))
}
